package parser

import (
	"archive/zip"
	"fmt"
	"html"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/tealeg/xlsx"

	"pizzeria-rag/internal/config"
	"pizzeria-rag/internal/models"
)

const (
	defaultChunkSize    = 1000 // bytes
	defaultChunkOverlap = 500  // bytes
	defaultPageNumber   = 1
)

type Parser struct {
	chunkSize    int
	chunkOverlap int
}

func New(cfg config.RAGConfig) *Parser {
	p := &Parser{chunkSize: cfg.ChunkSize, chunkOverlap: cfg.ChunkOverlap}
	if p.chunkSize <= 0 {
		p.chunkSize = defaultChunkSize
	}
	if p.chunkOverlap <= 0 {
		p.chunkOverlap = defaultChunkOverlap
	}
	return p
}

// ParseFile extracts the text of a document and splits it into chunks.
// Every chunk carries the source file name, its page and its chunk id as metadata.
func (p *Parser) ParseFile(filePath string) ([]models.Chunk, error) {
	var (
		chunks []models.Chunk
		err    error
	)
	ext := strings.ToLower(filepath.Ext(filePath))
	switch ext {
	case ".pdf":
		chunks, err = p.parsePDF(filePath)
	case ".docx":
		chunks, err = parseDOCX(filePath)
	case ".pptx":
		chunks, err = parsePPTX(filePath)
	case ".xlsx":
		chunks, err = parseXLSX(filePath)
	case ".txt":
		chunks, err = p.parseText(filePath, false)
	case ".md":
		chunks, err = p.parseText(filePath, true)
	default:
		return nil, fmt.Errorf("unsupported file format: %s", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filePath, err)
	}

	source := filepath.Base(filePath)
	for i := range chunks {
		chunks[i].Metadata = map[string]string{
			models.MetaSource:  source,
			models.MetaPage:    strconv.Itoa(chunks[i].PageNumber),
			models.MetaChunkID: strconv.Itoa(chunks[i].ChunkID),
		}
	}
	return chunks, nil
}

func (p *Parser) parsePDF(filePath string) ([]models.Chunk, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}

	reader, err := pdf.NewReader(f, stat.Size())
	if err != nil {
		return nil, err
	}

	var chunks []models.Chunk
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return nil, err
		}
		chunks = append(chunks, p.getChunks(pageText, i)...)
	}
	return chunks, nil
}

func parseDOCX(filePath string) ([]models.Chunk, error) {
	r, err := docx.ReadDocxFile(filePath)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	content := r.Editable().GetContent()
	var chunks []models.Chunk
	for _, para := range strings.Split(content, "</w:p>") {
		para = strings.TrimSpace(xmlText(para, "w:t", ""))
		if para == "" {
			continue
		}
		chunks = append(chunks, models.Chunk{
			Content:    para,
			PageNumber: defaultPageNumber, // DOCX has no page numbers
			ChunkID:    len(chunks) + 1,
		})
	}
	return chunks, nil
}

func parsePPTX(filePath string) ([]models.Chunk, error) {
	f, err := zip.OpenReader(filePath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var chunks []models.Chunk
	for _, file := range f.File {
		if !strings.HasPrefix(file.Name, "ppt/slides/slide") || !strings.HasSuffix(file.Name, ".xml") {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			continue
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			continue
		}
		slideText := strings.TrimSpace(xmlText(string(data), "a:t", " "))
		if slideText == "" {
			continue
		}
		slideNum, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(file.Name, "ppt/slides/slide"), ".xml"))
		if err != nil {
			slideNum = len(chunks) + 1
		}
		chunks = append(chunks, models.Chunk{
			Content:    slideText,
			PageNumber: slideNum,
			ChunkID:    1,
		})
	}
	return chunks, nil
}

func parseXLSX(filePath string) ([]models.Chunk, error) {
	f, err := xlsx.OpenFile(filePath)
	if err != nil {
		return nil, err
	}

	var chunks []models.Chunk
	for sheetNum, sheet := range f.Sheets {
		var text strings.Builder
		text.WriteString(fmt.Sprintf("## Sheet: %s\n", sheet.Name))
		rows := 0
		for _, row := range sheet.Rows {
			cells := make([]string, 0, len(row.Cells))
			for _, cell := range row.Cells {
				cells = append(cells, strings.TrimSpace(cell.String()))
			}
			line := strings.TrimRight(strings.Join(cells, "\t"), "\t")
			if line == "" {
				continue
			}
			text.WriteString(line + "\n")
			rows++
		}
		if rows == 0 {
			continue
		}
		chunks = append(chunks, models.Chunk{
			Content:    text.String(),
			PageNumber: sheetNum + 1, // 1-based indexing
			ChunkID:    1,
		})
	}
	return chunks, nil
}

func (p *Parser) parseText(filePath string, isMarkdown bool) ([]models.Chunk, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	content := string(data)
	if isMarkdown {
		content = markdownToText(data)
	}
	if strings.TrimSpace(content) == "" {
		return nil, nil
	}
	return p.getChunks(content, defaultPageNumber), nil
}

// xmlText concatenates the character data of every <tag>...</tag> element, joined by sep.
func xmlText(s, tag, sep string) string {
	open, closing := "<"+tag, "</"+tag+">"
	var parts []string
	for {
		i := strings.Index(s, open)
		if i < 0 {
			break
		}
		s = s[i+len(open):]
		// <w:tab/> shares the <w:t prefix
		if s == "" || (s[0] != '>' && s[0] != ' ') {
			continue
		}
		gt := strings.Index(s, ">")
		if gt < 0 {
			break
		}
		if gt > 0 && s[gt-1] == '/' {
			s = s[gt+1:]
			continue
		}
		s = s[gt+1:]
		end := strings.Index(s, closing)
		if end < 0 {
			break
		}
		parts = append(parts, html.UnescapeString(s[:end]))
		s = s[end+len(closing):]
	}
	return strings.Join(parts, sep)
}

// chunk content into chunks with maxChars and overlapChars
func chunkContent(content string, maxChars, overlapChars int) []string {
	if maxChars <= 0 {
		return nil
	}
	if overlapChars < 0 {
		overlapChars = 0
	}
	if overlapChars >= maxChars {
		overlapChars = maxChars / 2
	}

	content = strings.TrimSpace(content)
	contentLen := len(content)
	if contentLen == 0 {
		return nil
	}
	if contentLen <= maxChars {
		return []string{content}
	}

	var chunks []string
	start := 0
	for start < contentLen {
		end := runeEnd(content, start, min(start+maxChars, contentLen))

		// prefer a break at a space, newline or period in the last 10% of the chunk
		if end < contentLen {
			lookBack := min(maxChars/10, end-start)
			for i := end - 1; i >= end-lookBack && i > start; i-- {
				if content[i] == ' ' || content[i] == '\n' || content[i] == '.' {
					end = i + 1
					break
				}
			}
		}

		if chunk := strings.TrimSpace(content[start:end]); chunk != "" {
			chunks = append(chunks, chunk)
		}
		if end >= contentLen {
			break
		}

		next := end - overlapChars
		for next < end && !utf8.RuneStart(content[next]) {
			next++
		}
		if next <= start {
			_, size := utf8.DecodeRuneInString(content[start:])
			next = start + size
		}
		start = next
	}

	return chunks
}

// runeEnd moves end back to a rune boundary, or forward past one rune when that
// would leave the chunk empty.
func runeEnd(content string, start, end int) int {
	if end >= len(content) {
		return len(content)
	}
	for end > start && !utf8.RuneStart(content[end]) {
		end--
	}
	if end == start {
		_, size := utf8.DecodeRuneInString(content[start:])
		end = start + size
	}
	return end
}

// get chunks from content and page number
func (p *Parser) getChunks(content string, pageNumber int) []models.Chunk {
	var chunks []models.Chunk
	for i, chunkString := range chunkContent(content, p.chunkSize, p.chunkOverlap) {
		chunks = append(chunks, models.Chunk{
			Content:    chunkString,
			PageNumber: pageNumber,
			ChunkID:    i + 1,
		})
	}
	return chunks
}
