// core/rundir/layout.go
package rundir

import (
	"os"
	"path/filepath"
)

func exists(parts ...string) bool {
	_, err := os.Stat(filepath.Join(parts...))
	return err == nil
}

// DetectLayout guesses the folder convention from filesystem markers.
// NovaSeq must be probed first: its tree also contains the C1.1 directory
// that marks the MiSeq family.
func DetectLayout(root string) (Layout, error) {
	baseCalls := filepath.Join(root, "Data", "Intensities", "BaseCalls")

	novaSeq := exists(root, "RunParameters.xml") &&
		(exists(baseCalls, "L001", "C1.1", "L001_1.cbcl") ||
			exists(baseCalls, "L001", "C1.1", "L001_2.cbcl"))
	if novaSeq {
		return LayoutNovaSeq, nil
	}
	if exists(root, "runParameters.xml") && exists(baseCalls, "L001", "C1.1") {
		return LayoutMiSeq, nil
	}
	if exists(root, "RunParameters.xml") && exists(baseCalls, "L001") {
		return LayoutMiniSeq, nil
	}
	if exists(root, "RunParameters.xml") && exists(root, "Data", "Intensities", "s.locs") {
		return LayoutHiSeqX, nil
	}
	return "", ErrUnknownLayout
}
