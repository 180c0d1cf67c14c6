// Package files stores uploaded voltammetry recordings on disk.
//
// Manager performs the low level work relative to the configured data
// directory: atomic writes with a blake2b content digest, renames, deletes
// and directory listings. Store builds on it to keep one recording per scan
// rate, converting every upload to the canonical two-column CSV that the
// analysis reads back.
//
//	store := files.NewStore(paths, logger)
//	ds, err := store.Save(ctx, 50, "scan_50.xlsx", upload)
//	table, err := store.Open(ctx, 50)
package files
