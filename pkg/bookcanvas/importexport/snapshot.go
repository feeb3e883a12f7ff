package importexport

import (
	"io"

	"github.com/fxamacker/cbor/v2"

	"github.com/mikepea/bookcanvas/pkg/bookcanvas/canvases"
	"github.com/mikepea/bookcanvas/pkg/bookcanvas/models"
)

// snapshotMode encodes deterministically, so the same canvas always yields
// the same bytes.
var snapshotMode = func() cbor.EncMode {
	em, err := cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}
	return em
}()

// WriteSnapshot writes tree as CBOR, in the same shape as the JSON export.
func WriteSnapshot(w io.Writer, tree models.CanvasTree) error {
	return snapshotMode.NewEncoder(w).Encode(canvases.NewTreeResponse(tree))
}

// ReadSnapshot decodes a snapshot written by WriteSnapshot.
func ReadSnapshot(r io.Reader) (canvases.TreeResponse, error) {
	var tree canvases.TreeResponse
	err := cbor.NewDecoder(r).Decode(&tree)
	return tree, err
}
