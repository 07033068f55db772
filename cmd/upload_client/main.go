package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"mime"
	"os"
	"path/filepath"

	"github.com/ruteri/storageitem-service/api"
	"github.com/ruteri/storageitem-service/api/clients"
	"github.com/urfave/cli/v2"
)

var flagServerAddr = &cli.StringFlag{
	Name:    "server-addr",
	Value:   "http://127.0.0.1:8080",
	Usage:   "upload server address",
	EnvVars: []string{"UPLOAD_SERVER_ADDR"},
}
var flagUploadPath = &cli.StringFlag{
	Name:  "upload-path",
	Value: api.DefaultUploadPath,
	Usage: "upload endpoint path on the server",
}
var flagStorage = &cli.StringFlag{
	Name:  "storage",
	Usage: "storage to upload into (server default if empty)",
}
var flagField = &cli.StringFlag{
	Name:  "field",
	Value: "file",
	Usage: "form field name carrying the upload",
}
var flagContentType = &cli.StringFlag{
	Name:  "content-type",
	Usage: "content type of the upload (guessed from the file extension if empty)",
}

func main() {
	app := &cli.App{
		Name:  "upload-client",
		Usage: "Upload files to and fetch items from a storage item server",
		Flags: []cli.Flag{
			flagServerAddr,
			flagUploadPath,
		},
		Commands: []*cli.Command{
			{
				Name:      "upload",
				Usage:     "upload a local file",
				ArgsUsage: "<file>",
				Flags:     []cli.Flag{flagStorage, flagField, flagContentType},
				Action:    uploadFile,
			},
			{
				Name:      "reference",
				Usage:     "register an object that already exists in a storage",
				ArgsUsage: "<path>",
				Flags:     []cli.Flag{flagStorage, flagField, flagContentType},
				Action:    referenceItem,
			},
			{
				Name:      "fetch",
				Usage:     "write a stored item to stdout",
				ArgsUsage: "<storage> <path>",
				Action:    fetchItem,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newClient(cCtx *cli.Context) *clients.UploadClient {
	return &clients.UploadClient{
		ServerAddr: cCtx.String(flagServerAddr.Name),
		UploadPath: cCtx.String(flagUploadPath.Name),
	}
}

func uploadFile(cCtx *cli.Context) error {
	if cCtx.NArg() != 1 {
		return fmt.Errorf("expected exactly one file argument")
	}
	fileName := cCtx.Args().First()

	f, err := os.Open(fileName)
	if err != nil {
		return err
	}
	defer f.Close()

	contentType := cCtx.String(flagContentType.Name)
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(fileName))
	}

	item, err := newClient(cCtx).Upload(cCtx.Context, &api.UploadRequest{
		FieldName:   cCtx.String(flagField.Name),
		FileName:    filepath.Base(fileName),
		ContentType: contentType,
		Data:        f,
		Storage:     cCtx.String(flagStorage.Name),
	})
	if item != nil {
		printItem(item)
	}
	return err
}

func referenceItem(cCtx *cli.Context) error {
	if cCtx.NArg() != 1 {
		return fmt.Errorf("expected exactly one path argument")
	}

	item, err := newClient(cCtx).Reference(cCtx.Context, cCtx.String(flagField.Name), api.Reference{
		Storage:     cCtx.String(flagStorage.Name),
		Path:        cCtx.Args().First(),
		ContentType: cCtx.String(flagContentType.Name),
	})
	if err != nil {
		return err
	}
	printItem(item)
	return nil
}

func fetchItem(cCtx *cli.Context) error {
	if cCtx.NArg() != 2 {
		return fmt.Errorf("expected <storage> <path> arguments")
	}

	rc, err := newClient(cCtx).Fetch(cCtx.Context, cCtx.Args().Get(0), cCtx.Args().Get(1))
	if err != nil {
		return err
	}
	defer rc.Close()

	_, err = io.Copy(os.Stdout, rc)
	return err
}

func printItem(item *api.Item) {
	out, err := json.MarshalIndent(item, "", "  ")
	if err != nil {
		log.Printf("could not encode item: %v", err)
		return
	}
	fmt.Println(string(out))
}
