package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/docsight/docsight-backend/internal/clients/gcp"
	"github.com/docsight/docsight-backend/internal/clients/openai"
	"github.com/docsight/docsight-backend/internal/clients/pinecone"
	"github.com/docsight/docsight-backend/internal/platform/logger"
)

type PageText struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
}

type PDFExtraction struct {
	PageCount int        `json:"page_count"`
	Pages     []PageText `json:"pages"`
}

// PDFTextService is the native-text path for PDFs whose text layer is usable
// without the external analyzer: parse the content streams, index each page
// into the vector store, and stash the raw pages alongside the document.
type PDFTextService interface {
	ExtractAndIndex(ctx context.Context, documentID, indexID, fileURI string) (PDFExtraction, error)
}

type pdfTextService struct {
	log    *logger.Logger
	bucket gcp.BucketService
	ai     openai.Client
	vs     pinecone.VectorStore
}

func NewPDFTextService(log *logger.Logger, bucket gcp.BucketService, ai openai.Client, vs pinecone.VectorStore) PDFTextService {
	return &pdfTextService{
		log:    log.With("service", "PDFTextService"),
		bucket: bucket,
		ai:     ai,
		vs:     vs,
	}
}

func (s *pdfTextService) ExtractAndIndex(ctx context.Context, documentID, indexID, fileURI string) (PDFExtraction, error) {
	var out PDFExtraction

	_, key, err := gcp.ParseURI(fileURI)
	if err != nil {
		return out, err
	}
	rc, err := s.bucket.DownloadFile(ctx, key)
	if err != nil {
		return out, fmt.Errorf("download pdf: %w", err)
	}
	raw, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil {
		return out, fmt.Errorf("read pdf: %w", err)
	}

	out, err = extractPDFPages(raw)
	if err != nil {
		return out, err
	}

	if err := s.bucket.WriteJSON(ctx, fmt.Sprintf("pages/%s/pages.json", documentID), out); err != nil {
		s.log.Warn("page artifact write failed", "document_id", documentID, "error", err)
	}

	if len(out.Pages) > 0 {
		texts := make([]string, len(out.Pages))
		for i, p := range out.Pages {
			texts[i] = p.Text
		}
		vecs, err := s.ai.Embed(ctx, texts)
		if err != nil {
			return out, fmt.Errorf("embed pages: %w", err)
		}
		vectors := make([]pinecone.Vector, len(vecs))
		for i, v := range vecs {
			vectors[i] = pinecone.Vector{
				ID:     fmt.Sprintf("doc:%s:page:%d", documentID, out.Pages[i].Number),
				Values: v,
				Metadata: map[string]any{
					"document_id": documentID,
					"page":        out.Pages[i].Number,
					"kind":        "pdf_page_text",
				},
			}
		}
		if err := s.vs.Upsert(ctx, indexID, vectors); err != nil {
			return out, fmt.Errorf("upsert page vectors: %w", err)
		}
	}

	s.log.Info("pdf text extracted",
		"document_id", documentID,
		"page_count", out.PageCount,
		"pages_with_text", len(out.Pages),
	)
	return out, nil
}

// extractPDFPages walks the PDF page by page and pulls text out of the
// content streams. Pages with no recoverable text are skipped; PageCount is
// still the full document page count.
func extractPDFPages(raw []byte) (PDFExtraction, error) {
	var out PDFExtraction

	conf := model.NewDefaultConfiguration()
	pdfCtx, err := api.ReadValidateAndOptimize(bytes.NewReader(raw), conf)
	if err != nil {
		return out, fmt.Errorf("pdfcpu read: %w", err)
	}

	out.PageCount = pdfCtx.PageCount
	for pageNr := 1; pageNr <= pdfCtx.PageCount; pageNr++ {
		r, err := pdfcpu.ExtractPageContent(pdfCtx, pageNr)
		if err != nil {
			continue
		}
		data, err := io.ReadAll(r)
		if err != nil || len(data) == 0 {
			continue
		}
		text := extractTextFromStream(data)
		if text == "" {
			continue
		}
		out.Pages = append(out.Pages, PageText{Number: pageNr, Text: text})
	}

	if len(out.Pages) == 0 {
		return out, fmt.Errorf("no text content found in pdf")
	}
	return out, nil
}

// pdfStringRe matches PDF string literals in parentheses: (text here)
var pdfStringRe = regexp.MustCompile(`\(([^)]*)\)`)

// extractTextFromStream parses PDF content stream operators for text.
func extractTextFromStream(data []byte) string {
	var sb strings.Builder

	for _, line := range bytes.Split(data, []byte{'\n'}) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}

		// Tj operator: (text) Tj; TJ operator: [(text) -100 (more)] TJ
		if bytes.HasSuffix(line, []byte("Tj")) || bytes.HasSuffix(line, []byte("TJ")) {
			for _, m := range pdfStringRe.FindAllSubmatch(line, -1) {
				if text := decodePDFString(m[1]); text != "" {
					sb.WriteString(text)
				}
			}
		}

		// ' operator (move to next line and show text): (text) '
		if bytes.HasSuffix(line, []byte("'")) && bytes.Contains(line, []byte("(")) {
			for _, m := range pdfStringRe.FindAllSubmatch(line, -1) {
				if text := decodePDFString(m[1]); text != "" {
					sb.WriteByte('\n')
					sb.WriteString(text)
				}
			}
		}

		// Td/TD reposition the text cursor; T* starts a new line.
		if bytes.HasSuffix(line, []byte("Td")) || bytes.HasSuffix(line, []byte("TD")) {
			if sb.Len() > 0 {
				sb.WriteByte(' ')
			}
		}
		if bytes.Equal(line, []byte("T*")) {
			sb.WriteByte('\n')
		}
	}

	return cleanPDFText(sb.String())
}

// decodePDFString handles basic PDF escape sequences.
func decodePDFString(raw []byte) string {
	var sb strings.Builder
	for i := 0; i < len(raw); i++ {
		if raw[i] == '\\' && i+1 < len(raw) {
			i++
			switch raw[i] {
			case 'n':
				sb.WriteByte('\n')
			case 'r':
				sb.WriteByte('\r')
			case 't':
				sb.WriteByte('\t')
			case '\\':
				sb.WriteByte('\\')
			case '(':
				sb.WriteByte('(')
			case ')':
				sb.WriteByte(')')
			default:
				// Octal escape (e.g. \040 for space).
				if raw[i] >= '0' && raw[i] <= '7' {
					val := int(raw[i] - '0')
					if i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '7' {
						i++
						val = val*8 + int(raw[i]-'0')
						if i+1 < len(raw) && raw[i+1] >= '0' && raw[i+1] <= '7' {
							i++
							val = val*8 + int(raw[i]-'0')
						}
					}
					sb.WriteByte(byte(val))
				} else {
					sb.WriteByte(raw[i])
				}
			}
		} else {
			sb.WriteByte(raw[i])
		}
	}
	return sb.String()
}

// cleanPDFText normalises whitespace in extracted PDF text.
func cleanPDFText(text string) string {
	var sb strings.Builder
	prevSpace := false
	for _, r := range text {
		if unicode.IsSpace(r) {
			if !prevSpace && sb.Len() > 0 {
				sb.WriteByte(' ')
				prevSpace = true
			}
		} else if unicode.IsPrint(r) {
			sb.WriteRune(r)
			prevSpace = false
		}
	}
	return strings.TrimSpace(sb.String())
}
