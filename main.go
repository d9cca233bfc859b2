package main

import (
	"log"
	"os"

	"github.com/customeros/lexsync/cmd"
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	if err := cmd.NewApp().Run(os.Args); err != nil {
		log.Fatalf("lexsync: %v", err)
	}
}
