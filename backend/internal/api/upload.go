package api

import (
	"io"
	"strings"

	"github.com/gin-gonic/gin"
	"smart-employee/backend/internal/extraction"
	"go.uber.org/zap"
)

// collectUploadText gathers document text from a request: uploaded plain-text
// files, a text_input form field, and optionally a url_input field whose page
// text is fetched. File-format parsing (PDF/DOCX) happens upstream; files
// arriving here are treated as plain text.
func (s *Server) collectUploadText(c *gin.Context) ([]string, error) {
	var texts []string

	form, err := c.MultipartForm()
	if err == nil && form != nil {
		for _, file := range form.File["files"] {
			f, err := file.Open()
			if err != nil {
				s.logger.Error("Failed to open uploaded file",
					zap.String("filename", file.Filename),
					zap.Error(err),
				)
				continue
			}
			content, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				s.logger.Error("Failed to read uploaded file",
					zap.String("filename", file.Filename),
					zap.Error(err),
				)
				continue
			}
			if text := strings.TrimSpace(string(content)); text != "" {
				texts = append(texts, text)
				s.logger.Info("Processed uploaded file",
					zap.String("filename", file.Filename),
					zap.Int("chars", len(text)),
				)
			}
		}
	}

	if textInput := strings.TrimSpace(c.PostForm("text_input")); textInput != "" {
		texts = append(texts, textInput)
	}

	if pageURL := strings.TrimSpace(c.PostForm("url_input")); pageURL != "" {
		pageText, err := extraction.FetchWebpageText(c.Request.Context(), pageURL)
		if err != nil {
			s.logger.Error("Failed to fetch webpage",
				zap.String("url", pageURL),
				zap.Error(err),
			)
		} else if pageText != "" {
			texts = append(texts, pageText)
		}
	}

	return texts, nil
}
