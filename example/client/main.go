package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/starius/restface"
	"github.com/starius/restface/debugclient"
	"github.com/starius/restface/example"
)

func main() {
	var httpClient restface.HttpClient = &http.Client{}
	if os.Getenv("DEBUG") != "" {
		httpClient = debugclient.New(httpClient, os.Stderr, debugclient.Redact("Authorization"))
	}

	client, err := example.NewNotesClient(
		"http://127.0.0.1:8080",
		restface.CustomClient(httpClient),
		restface.WithDecoder(restface.CsvDecoder{}),
		restface.WithInterceptor(restface.RequestID("X-Request-Id")),
		restface.ValidateBodies(),
	)
	if err != nil {
		panic(err)
	}
	defer client.Close()

	ctx := context.Background()

	version, err := client.Version(ctx)
	if err != nil {
		panic(err)
	}
	fmt.Println("server version", version)

	if _, err := client.Login(ctx, "alice", "bad password"); err == nil {
		panic("expected an error")
	}
	session, err := client.Login(ctx, "alice", "secret password")
	if err != nil {
		panic(err)
	}
	fmt.Println("session expires", session.Expires)

	if _, err := client.Create(ctx, &example.NewNote{Text: "no title"}); err == nil {
		panic("expected a validation error")
	}
	note, err := client.Create(ctx, &example.NewNote{
		Title:  "Shopping",
		Text:   "milk, bread",
		Tags:   []string{"home"},
		Author: "alice",
	})
	if err != nil {
		panic(err)
	}
	fmt.Println("created", note.ID, "version", note.Version)

	if err := client.Tag(ctx, note.ID, []string{"urgent"}, map[string]string{"X-Reason": "deadline"}); err != nil {
		panic(err)
	}

	notes, err := client.List(ctx, example.ListOptions{Tag: "home", Limit: 10})
	if err != nil {
		panic(err)
	}
	fmt.Println("notes tagged home:", len(notes))

	records, err := client.Export(ctx, []string{"home", "urgent"})
	if err != nil {
		panic(err)
	}
	fmt.Println("exported", records)

	res, err := client.Raw(ctx, note.ID)
	if err != nil {
		panic(err)
	}
	raw, err := io.ReadAll(res.Body)
	res.Body.Close()
	if err != nil {
		panic(err)
	}
	fmt.Println("raw", string(raw))

	if err := client.Delete(ctx, note.ID); err != nil {
		panic(err)
	}
	exists, err := client.Exists(ctx, note.ID)
	if err != nil {
		panic(err)
	}
	fmt.Println("exists after delete:", exists)
}
