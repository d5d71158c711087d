// Manual course generation script.
//
// Submits a document, text snippet or link against a running server and
// polls the generation job until it finishes. Useful for smoke-testing a
// deployment without the web frontend.
//
// Usage:
//
//	go run scripts/generate_course.go -file notes.pdf
//	go run scripts/generate_course.go -text "Python full course"
//	go run scripts/generate_course.go -link https://example.com/article
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"

	"github.com/courseforge/backend/pkg/client"
)

func main() {
	server := flag.String("server", "http://localhost:8080", "backend base URL")
	file := flag.String("file", "", "path of a document to upload")
	text := flag.String("text", "", "raw text or topic request")
	link := flag.String("link", "", "http(s) URL to convert")
	token := flag.String("token", "", "bearer token, optional")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var opts []client.Option
	if *token != "" {
		opts = append(opts, client.WithToken(*token))
	}
	c := client.New(*server, opts...)

	var result *client.GenerationResult
	var err error
	switch {
	case *file != "":
		result, err = c.SubmitFile(ctx, *file)
	case *text != "":
		result, err = c.SubmitText(ctx, *text)
	case *link != "":
		result, err = c.SubmitLink(ctx, *link)
	default:
		log.Fatal("provide exactly one of -file, -text or -link")
	}
	if err != nil {
		log.Fatalf("submit failed: %v", err)
	}

	log.Printf("course %s (%q) generated: %d modules, %d topics",
		result.CourseID, result.Title, result.ModuleCount, result.TopicCount)

	status, err := c.PollGeneration(ctx, result.GenerationID)
	if err != nil {
		log.Fatalf("poll failed: %v", err)
	}
	log.Printf("generation %s finished: status=%s progress=%d stage=%q",
		status.ID, status.Status, status.Progress, status.Stage)
}
