package ingest

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
)

// Chunk is one extracted piece of an uploaded file. A chunk with a non-nil
// Error terminates the stream.
type Chunk struct {
	Text  string
	Error error
}

type Parser interface {
	Parse(filename string, data io.Reader) chan Chunk
}

type DefaultParser struct {
	maxDocumentSize int
}

const (
	defaultMaxDocumentSize = 64 * 1024 * 1024 // 64 MB
	queueBufferSize        = 4
)

func NewDefaultParser() *DefaultParser {
	return &DefaultParser{maxDocumentSize: defaultMaxDocumentSize}
}

// Parse extracts text from the uploaded file based on its extension. The
// returned channel is closed once the file is fully consumed.
func (parser *DefaultParser) Parse(filename string, data io.Reader) chan Chunk {
	output := make(chan Chunk, queueBufferSize)

	ext := strings.ToLower(filepath.Ext(filename))

	go func() {
		defer close(output)

		switch ext {
		case ".pdf":
			parser.parsePdf(data, output)
		case ".txt", ".md", ".csv", ".html", ".json", ".xml":
			parser.parsePlaintext(data, output)
		default:
			output <- Chunk{Error: fmt.Errorf("unsupported file type %q", ext)}
		}
	}()

	return output
}

func (parser *DefaultParser) parsePdf(data io.Reader, output chan Chunk) {
	document := make([]byte, parser.maxDocumentSize)

	n, err := io.ReadFull(data, document)
	if err == nil {
		// if the error is nil then the end of the stream was not reached, thus we cannot parse the pdf.
		output <- Chunk{Error: fmt.Errorf("pdf is too large for parsing")}
		return
	} else if err != io.EOF && err != io.ErrUnexpectedEOF {
		output <- Chunk{Error: err}
		return
	}

	pdf, err := fitz.NewFromMemory(document[:n])
	if err != nil {
		output <- Chunk{Error: err}
		return
	}
	defer pdf.Close()

	pages := make([]string, 0, pdf.NumPage())

	for i := 0; i < pdf.NumPage(); i++ {
		pageText, err := pdf.Text(i)
		if err != nil {
			output <- Chunk{Error: err}
			return
		}
		pages = append(pages, pageText)
	}

	output <- Chunk{Text: strings.Join(pages, "\n\n")}
}

func (parser *DefaultParser) parsePlaintext(data io.Reader, output chan Chunk) {
	for {
		buf := make([]byte, parser.maxDocumentSize)

		n, err := io.ReadFull(data, buf)
		isEnd := false
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			err = nil
			isEnd = true
		}

		output <- Chunk{Text: string(buf[:n]), Error: err}

		if isEnd || err != nil {
			return
		}
	}
}
