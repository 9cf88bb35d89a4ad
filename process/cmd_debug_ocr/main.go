package main

import (
	"context"
	"flag"
	"fmt"
	"log"

	"github.com/BlakeDonn/inven/config"
	"github.com/BlakeDonn/inven/pkg/match"
	"github.com/BlakeDonn/inven/pkg/ocr"
	"github.com/BlakeDonn/inven/pkg/setup"
)

func main() {
	cfgPath := flag.String("config", "", "config file (default: config.yaml in . or ./config)")
	f := flag.String("file", "", "image file to OCR")
	modeFlag := flag.String("mode", "title", "title or trait")
	doMatch := flag.Bool("match", false, "also resolve the text against the catalogs")
	flag.Parse()
	if *f == "" {
		log.Fatalf("-file required")
	}
	mode := ocr.ModeTitle
	switch *modeFlag {
	case "title":
	case "trait":
		mode = ocr.ModeTrait
	default:
		log.Fatalf("-mode must be title or trait, got %q", *modeFlag)
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	img, err := ocr.LoadImage(*f)
	if err != nil {
		log.Fatalf("open: %v", err)
	}
	pre, err := ocr.Preprocess(img)
	if err != nil {
		log.Fatalf("preprocess: %v", err)
	}

	a, b := setup.Engines(cfg)
	arb := ocr.NewArbiter(a, b, log.Default())
	arb.Verbose = true
	d := arb.Extract(context.Background(), pre, mode)
	fmt.Printf("%s conf=%.2f text=%q\n", d.A.Engine, d.A.Confidence, d.A.Text)
	fmt.Printf("%s conf=%.2f text=%q\n", d.B.Engine, d.B.Confidence, d.B.Text)
	fmt.Printf("chosen=%s text=%q\n", d.Chosen.Engine, d.Text)

	if !*doMatch {
		return
	}
	pipe, err := setup.Pipeline(cfg, log.Default())
	if err != nil {
		log.Fatalf("catalogs: %v", err)
	}
	var cands []match.Candidate
	if mode == ocr.ModeTitle {
		res := pipe.MatchItem(d.Text)
		fmt.Printf("item=%q type=%s rarity=%s score=%.2f source=%s\n", res.Value.Name, res.Value.Type, res.Value.Rarity, res.Score, res.Source)
		cands = res.Candidates
	} else {
		n, res := pipe.MatchTrait(d.Text)
		fmt.Printf("normalized=%q trait=%q score=%.2f source=%s\n", n, res.Value, res.Score, res.Source)
		cands = res.Candidates
	}
	for _, c := range cands {
		fmt.Printf("  candidate key=%q score=%.2f\n", c.Key, c.Score)
	}
}
