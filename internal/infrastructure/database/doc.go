// Package database provides the SQLite connection used by the account,
// reading and audit repositories.
//
// Open applies the connection pragmas (busy timeout, foreign keys and
// optionally WAL) and pins the pool to one connection. Migrate applies
// the embedded goose migrations from the migrations package:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	if err := db.Migrate(ctx, migrations.FS, logger.Logger); err != nil {
//	    return err
//	}
//
// All queries use parameterised statements.
package database
