package main

import (
	"flag"
	"log"
	"os"

	"github.com/goccy/go-json"

	"camwatch/pkg/camera/v4l"
)

func main() {
	index := flag.Int("i", 0, "device index")
	flag.Parse()

	info, err := v4l.Describe(*index)
	if err != nil {
		log.Fatal(err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "    ")
	if err = enc.Encode(info); err != nil {
		log.Fatal(err)
	}
}
