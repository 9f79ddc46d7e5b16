package main

import (
	"log"
	"net/http"

	"github.com/starius/restface/example/notesserver"
)

func main() {
	mux := http.NewServeMux()
	notesserver.NewNotesServer().Register(mux)
	log.Fatal(http.ListenAndServe(":8080", mux))
}
