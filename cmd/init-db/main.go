// Command init-db provisions the go-stockblog database: schema migrations plus sample posts
package main

import (
	"context"
	"flag"
	"log"
	"path/filepath"

	"github.com/go-while/go-stockblog/internal/config"
	"github.com/go-while/go-stockblog/internal/database"
)

var appVersion = "-unset-"

func main() {
	config.AppVersion = appVersion
	var (
		dataDir = flag.String("data", config.DefaultDataDir, "Directory to store the database file")
		dbFile  = flag.String("file", config.DefaultDBFile, "Database file name inside -data")
		noSeed  = flag.Bool("noseed", false, "only apply migrations, do not insert the sample posts")
	)
	flag.Parse()

	log.Printf("[INIT-DB]: go-stockblog init-db (version: %s)", config.AppVersion)

	dbconfig := database.DefaultDBConfig()
	dbconfig.DataDir = *dataDir
	dbconfig.File = *dbFile

	existed := database.FileExists(filepath.Join(dbconfig.DataDir, dbconfig.File))
	db, err := database.OpenDatabase(dbconfig)
	if err != nil {
		log.Fatalf("[INIT-DB]: Failed to initialize database: %v", err)
	}
	defer db.Close()

	if existed {
		log.Printf("[INIT-DB]: Using existing database %s", db.Path())
	} else {
		log.Printf("[INIT-DB]: Created database %s", db.Path())
	}

	if *noSeed {
		log.Printf("[INIT-DB]: Skipping sample posts (-noseed)")
		return
	}

	inserted, err := db.SeedPosts(context.Background())
	if err != nil {
		db.Close()
		log.Fatalf("[INIT-DB]: Failed to seed posts: %v", err)
	}
	log.Printf("[INIT-DB]: Inserted %d sample posts", inserted)
}
