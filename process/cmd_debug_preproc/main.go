package main

import (
	"flag"
	"fmt"
	"log"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"

	"github.com/BlakeDonn/inven/pkg/ocr"
	"github.com/BlakeDonn/inven/process/retry"
)

func main() {
	in := flag.String("file", "", "image file to preprocess")
	out := flag.String("out", "", "output path (default: <file>.pre.png)")
	enhance := flag.Bool("enhance", false, "apply the retry sharpen/contrast pass first")
	flag.Parse()
	if *in == "" {
		log.Fatalf("-file required")
	}
	if *out == "" {
		*out = strings.TrimSuffix(*in, filepath.Ext(*in)) + ".pre.png"
	}

	img, err := ocr.LoadImage(*in)
	if err != nil {
		log.Fatalf("open: %v", err)
	}
	if *enhance {
		img = retry.Enhance(img)
	}
	pre, err := ocr.Preprocess(img)
	if err != nil {
		log.Fatalf("preprocess: %v", err)
	}
	if err := imaging.Save(pre, *out); err != nil {
		log.Fatalf("save: %v", err)
	}
	b := pre.Bounds()
	fmt.Printf("saved %s (%dx%d)\n", *out, b.Dx(), b.Dy())
}
