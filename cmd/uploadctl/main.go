package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/sir_venger/upload_lite/pkg/uploadclient"
)

const usage = `usage: uploadctl [-server URL] <command> [args]

commands:
  put <file> [upload_id]   upload a file, resuming upload_id if given
  status <upload_id>       print upload state
  abort <upload_id>        cancel an upload
  get <upload_id> <out>    download a completed upload
`

func main() {
	server := flag.String("server", "http://localhost:8080", "upload service base URL")
	chunk := flag.Int64("chunk", 0, "requested chunk size in bytes (0 = server default)")
	parallel := flag.Int("parallel", 4, "chunks in flight")
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	flag.Parse()

	args := flag.Args()
	if len(args) < 2 {
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c := uploadclient.New(*server, uploadclient.Options{Progress: os.Stdout})

	var err error
	switch args[0] {
	case "put":
		resume := ""
		if len(args) > 2 {
			resume = args[2]
		}
		err = put(ctx, c, args[1], resume, *chunk, *parallel)
	case "status":
		err = status(ctx, c, args[1])
	case "abort":
		err = c.Abort(ctx, args[1])
	case "get":
		if len(args) < 3 {
			flag.Usage()
			os.Exit(2)
		}
		err = get(ctx, c, args[1], args[2])
	default:
		flag.Usage()
		os.Exit(2)
	}

	if err != nil {
		log.Fatal(err)
	}
}

func put(ctx context.Context, c uploadclient.Client, path, resume string, chunk int64, parallel int) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	id, err := uploadclient.Upload(ctx, c, uploadclient.FileUpload{
		UploadID:  resume,
		FileName:  filepath.Base(path),
		Size:      info.Size(),
		ChunkSize: chunk,
		Source:    f,
		Parallel:  parallel,
	})
	if id != "" {
		// id печатаем и при ошибке: с ним загрузку можно продолжить.
		fmt.Println("upload_id:", id)
	}

	return err
}

func status(ctx context.Context, c uploadclient.Client, id string) error {
	st, err := c.Status(ctx, id)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(st)
}

func get(ctx context.Context, c uploadclient.Client, id, out string) error {
	rc, err := c.Download(ctx, id)
	if err != nil {
		return err
	}
	defer rc.Close()

	f, err := os.Create(out)
	if err != nil {
		return err
	}

	if _, err := io.Copy(f, rc); err != nil {
		f.Close()
		return err
	}

	return f.Close()
}
