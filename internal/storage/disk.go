package storage

import (
	"io/fs"
	"os"
	"path/filepath"
)

// Footprint returns the bytes used on disk by the run database, the keyword
// index and the saved vocabulary. Paths that do not exist count as zero.
func Footprint(paths ...string) (int64, error) {
	var total int64
	for _, p := range paths {
		if p == "" {
			continue
		}
		n, err := pathSize(p)
		if err != nil {
			return 0, err
		}
		total += n
	}
	return total, nil
}

func pathSize(root string) (int64, error) {
	var total int64
	err := filepath.WalkDir(root, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	return total, err
}
