// Command backup dumps every table to JSON files or restores them.
//
//	backup backup  [-dir backup] [-s3]
//	backup restore [-dir backup]
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"github.com/joho/godotenv"

	"github.com/oksasatya/tripdesk/config"
	"github.com/oksasatya/tripdesk/internal/container"
	"github.com/oksasatya/tripdesk/pkg/helpers"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-backup", cfg.Env)

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "usage: backup backup|restore [-dir DIR] [-s3]")
		os.Exit(2)
	}
	cmd := os.Args[1]
	fs := flag.NewFlagSet(cmd, flag.ExitOnError)
	dir := fs.String("dir", cfg.BackupDir, "directory holding <table>.json files")
	toS3 := fs.Bool("s3", false, "also upload the dump to S3")
	_ = fs.Parse(os.Args[2:])

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	handles, closeAll, err := container.Connect(ctx, cfg, logger, true)
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}
	defer closeAll()
	svc := container.New(cfg, logger, handles).Backup()

	switch cmd {
	case "backup":
		if *toS3 {
			up, err := helpers.NewS3Uploader(ctx, cfg.S3Endpoint, cfg.S3Region, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket)
			if err != nil {
				log.Fatalf("s3: %v", err)
			}
			svc.Uploader = up
			svc.Prefix = fmt.Sprintf("%s/%s", cfg.S3Prefix, time.Now().UTC().Format("20060102T150405Z"))
		}
		files, err := svc.Backup(ctx, *dir)
		if err != nil {
			log.Fatalf("backup failed: %v", err)
		}
		for _, f := range files {
			fmt.Println("wrote", f)
		}
	case "restore":
		results, err := svc.Restore(ctx, *dir)
		if err != nil {
			log.Fatalf("restore failed: %v", err)
		}
		tables := make([]string, 0, len(results))
		for t := range results {
			tables = append(tables, t)
		}
		sort.Strings(tables)
		for _, t := range tables {
			r := results[t]
			fmt.Printf("%-16s ok=%d failed=%d\n", t, r.SuccessCount, r.ErrorCount)
			for _, e := range r.Errors {
				fmt.Printf("  [%d] %s\n", e.Index, e.Message)
			}
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n", cmd)
		os.Exit(2)
	}
}
