package service

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/courseforge/backend/internal/config"
	"github.com/courseforge/backend/internal/util"
	"github.com/courseforge/backend/pkg/logger"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

// ExtractionService turns uploaded documents and URLs into plain text.
// Extraction failures are final: a corrupt source does not get retried with
// the same bytes.
type ExtractionService struct {
	cfg    config.ExtractionConfig
	client *http.Client
}

func NewExtractionService(cfg config.ExtractionConfig) *ExtractionService {
	return &ExtractionService{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.LinkFetchTimeout},
	}
}

// ExtractFile dispatches on the declared media type, falling back to the
// file extension the way browsers often leave mime types blank.
func (s *ExtractionService) ExtractFile(path string, mimeType string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))

	var text string
	var err error
	switch {
	case strings.Contains(mimeType, "pdf") || ext == ".pdf":
		text, err = s.extractPDF(path)
	case strings.HasPrefix(mimeType, "image/") || isImageExt(ext):
		text, err = s.extractImage(path)
	case strings.Contains(mimeType, "word") || strings.Contains(mimeType, "officedocument") || ext == ".docx":
		text, err = s.extractDocx(path)
	case strings.Contains(mimeType, "text") || ext == ".txt":
		text, err = s.extractPlain(path)
	default:
		return "", fmt.Errorf("%w: unsupported file type %s", util.ErrExtractionFailed, mimeType)
	}

	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: the file may be corrupted or in an unsupported format", util.ErrExtractionFailed)
	}
	return text, nil
}

func (s *ExtractionService) extractPDF(path string) (string, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: pdf: %v", util.ErrExtractionFailed, err)
	}
	defer f.Close()

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: pdf: %v", util.ErrExtractionFailed, err)
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("%w: pdf: %v", util.ErrExtractionFailed, err)
	}
	return buf.String(), nil
}

// extractImage shells out to tesseract, the same way the platform drives
// other external media tools. stdout capture via the "stdout" output target.
func (s *ExtractionService) extractImage(path string) (string, error) {
	cmd := exec.Command(s.cfg.TesseractBin, path, "stdout", "-l", "eng")
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		logger.Log.Warn("tesseract failed", zap.String("stderr", stderr.String()), zap.Error(err))
		return "", fmt.Errorf("%w: ocr: %v", util.ErrExtractionFailed, err)
	}
	return out.String(), nil
}

// docx is a zip archive; the visible text lives in word/document.xml as
// <w:t> runs with <w:p> paragraph boundaries.
func (s *ExtractionService) extractDocx(path string) (string, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return "", fmt.Errorf("%w: docx: %v", util.ErrExtractionFailed, err)
	}
	defer archive.Close()

	var doc *zip.File
	for _, f := range archive.File {
		if f.Name == "word/document.xml" {
			doc = f
			break
		}
	}
	if doc == nil {
		return "", fmt.Errorf("%w: docx: missing word/document.xml", util.ErrExtractionFailed)
	}

	rc, err := doc.Open()
	if err != nil {
		return "", fmt.Errorf("%w: docx: %v", util.ErrExtractionFailed, err)
	}
	defer rc.Close()

	var sb strings.Builder
	decoder := xml.NewDecoder(rc)
	inText := false
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("%w: docx: %v", util.ErrExtractionFailed, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if t.Name.Local == "t" {
				inText = true
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				sb.WriteString("\n")
			}
		case xml.CharData:
			if inText {
				sb.Write(t)
			}
		}
	}
	return sb.String(), nil
}

func (s *ExtractionService) extractPlain(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %v", util.ErrExtractionFailed, err)
	}
	return string(data), nil
}

// ExtractLink fetches a page and reduces it to visible text.
func (s *ExtractionService) ExtractLink(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", util.ErrExtractionFailed, err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: failed to process URL: %v", util.ErrExtractionFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: URL returned status %d", util.ErrExtractionFailed, resp.StatusCode)
	}

	text := HTMLToText(resp.Body)
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: the page may be empty or inaccessible", util.ErrExtractionFailed)
	}
	return text, nil
}

// HTMLToText walks the token stream, skipping script/style subtrees and
// collapsing whitespace.
func HTMLToText(r io.Reader) string {
	z := html.NewTokenizer(r)
	var parts []string
	skipDepth := 0

	for {
		switch z.Next() {
		case html.ErrorToken:
			return strings.Join(parts, " ")
		case html.StartTagToken:
			name, _ := z.TagName()
			if skippedTag(string(name)) {
				skipDepth++
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			if skippedTag(string(name)) && skipDepth > 0 {
				skipDepth--
			}
		case html.TextToken:
			if skipDepth > 0 {
				continue
			}
			if text := strings.TrimSpace(string(z.Text())); text != "" {
				parts = append(parts, strings.Join(strings.Fields(text), " "))
			}
		}
	}
}

func skippedTag(name string) bool {
	return name == "script" || name == "style" || name == "noscript"
}

func isImageExt(ext string) bool {
	switch ext {
	case ".jpg", ".jpeg", ".png", ".gif", ".bmp":
		return true
	}
	return false
}
