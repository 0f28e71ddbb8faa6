// Package database opens the SQLite file that holds channel scan history
// and applies its schema migrations.
//
// Usage:
//
//	db, err := database.Open(ctx, cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// Migrations are pairs of YYYYMMDD_HHMMSS_name.up.sql and .down.sql files.
// Applied versions are recorded in schema_migrations, so Migrate is safe to
// call on every start.
package database
