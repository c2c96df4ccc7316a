package main

import (
	"context"
	"log"
	"os"

	"github.com/sawaflix/backend/internal/app"
)

func main() {
	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}
