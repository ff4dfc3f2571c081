package ocr

import (
	"strconv"
	"strings"

	"github.com/joseph-ayodele/rod-records/internal/extract"
)

const (
	tsvLevel = iota
	tsvPage
	tsvBlock
	tsvPar
	tsvLine
	tsvWord
	_ // left
	_ // top
	_ // width
	_ // height
	tsvConf
	tsvText
	tsvColumns
)

const tsvWordLevel = "5"

// parseTSV rebuilds line-oriented text and word confidences (0..1) from
// `tesseract ... tsv` output. Blocks are separated by a blank line.
func parseTSV(out []byte) (string, []extract.Word) {
	var (
		b        strings.Builder
		words    []extract.Word
		lastLine string
		lastBlk  string
	)
	for i, ln := range strings.Split(string(out), "\n") {
		if i == 0 || ln == "" {
			continue // header
		}
		cols := strings.Split(strings.TrimRight(ln, "\r"), "\t")
		if len(cols) < tsvColumns || cols[tsvLevel] != tsvWordLevel {
			continue
		}
		text := strings.TrimSpace(cols[tsvText])
		if text == "" {
			continue
		}

		blk := cols[tsvPage] + "." + cols[tsvBlock]
		line := blk + "." + cols[tsvPar] + "." + cols[tsvLine]
		switch {
		case b.Len() == 0:
		case blk != lastBlk:
			b.WriteString("\n\n")
		case line != lastLine:
			b.WriteString("\n")
		default:
			b.WriteString(" ")
		}
		b.WriteString(text)
		lastBlk, lastLine = blk, line

		conf, err := strconv.ParseFloat(cols[tsvConf], 64)
		if err != nil || conf < 0 {
			continue
		}
		words = append(words, extract.Word{Text: text, Confidence: extract.Clamp(conf / 100)})
	}
	return b.String(), words
}
