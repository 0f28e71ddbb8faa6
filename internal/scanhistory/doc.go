// Package scanhistory stores completed channel scans in SQLite.
//
// A channel scan takes a minute or more and retunes the tuner, so the last
// result per tuner is kept and served without scanning again.
//
//	repo := scanhistory.NewSQLiteRepository(db.DB)
//	rec, err := repo.Save(ctx, "1040ABCD", 0, time.Now(), results)
//	latest, err := repo.Latest(ctx, "1040ABCD", 0)
package scanhistory
