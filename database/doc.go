// Package database opens the header index cache.
//
// Two backends are supported:
//
//   - PostgreSQL, through a pgx connection pool
//   - SQLite, through modernc.org/sqlite, for a single local cache file
//
// # Usage
//
//	db, err := database.Open(ctx, database.Config{
//	    Type:   "sqlite",
//	    DSN:    "astro-cloud.db",
//	    Tables: astrocloud.Tables{Headers: "fits_headers"},
//	})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	svc, err := astrocloud.NewIndexService(walker, db.GetRepo())
//
// Open pings, migrates and validates the schema. Connect only opens the
// backend.
package database
