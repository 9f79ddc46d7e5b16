package main

import (
	"log"
	"os"

	"github.com/starius/restface"
	"github.com/starius/restface/example"
)

func main() {
	f, err := os.Create("client_gen.go")
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	err = restface.GenerateClient(f, restface.GenerateConfig{
		API:         example.NotesAPI,
		APIVar:      "NotesAPI",
		Package:     "example",
		PackagePath: "github.com/starius/restface/example",
	})
	if err != nil {
		log.Fatal(err)
	}
}
