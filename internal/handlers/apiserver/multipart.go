package apiserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"social-go/internal/services"
)

const (
	defaultMaxMemory = 32 << 20 // 32 MB default max memory for multipart forms
	// multipart 头部与其它表单字段的额外余量
	formOverhead = 1 << 20
)

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && strings.HasPrefix(mediaType, "multipart/")
}

// parseForm limits the body to maxBytes plus form overhead and parses it.
func parseForm(w http.ResponseWriter, r *http.Request, maxBytes int64) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+formOverhead)
	if err := r.ParseMultipartForm(defaultMaxMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			msg := fmt.Sprintf("File is too large, maximum is %d MB", maxBytes>>20)
			writeJSONError(w, http.StatusRequestEntityTooLarge, string(services.KindValidation), "", msg)
			return false
		}
		writeValidationError(w, "", "Invalid multipart form")
		return false
	}
	return true
}

// formAttachment returns the file stored under field. The caller closes the
// returned file. A missing file yields a zero Attachment so that the service
// reports it.
func formAttachment(r *http.Request, field string) (services.Attachment, multipart.File, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return services.Attachment{}, nil, nil
	}
	if err != nil {
		return services.Attachment{}, nil, err
	}
	return services.Attachment{Reader: file, Size: header.Size, Filename: header.Filename}, file, nil
}

// formList reads a list field sent either as a JSON array string or as
// repeated form values.
func formList(r *http.Request, field string) ([]string, error) {
	values := r.MultipartForm.Value[field]
	if len(values) == 1 && strings.HasPrefix(strings.TrimSpace(values[0]), "[") {
		var list []string
		if err := json.Unmarshal([]byte(values[0]), &list); err != nil {
			return nil, err
		}
		return list, nil
	}
	return values, nil
}

// formPollOptions accepts pollOptions directly or the pollData object
// {"options":[...]} used by older clients.
func formPollOptions(r *http.Request) ([]string, error) {
	if raw := r.FormValue("pollData"); raw != "" {
		var data pollData
		if err := json.Unmarshal([]byte(raw), &data); err != nil {
			return nil, err
		}
		return data.Options, nil
	}
	return formList(r, "pollOptions")
}

// pollData is the legacy poll payload: either {"options":[...]} or
// {"options":[{"text":...}]}.
type pollData struct {
	Options []string
}

func (p *pollData) UnmarshalJSON(b []byte) error {
	var raw struct {
		Options []json.RawMessage `json:"options"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	for _, o := range raw.Options {
		var text string
		if err := json.Unmarshal(o, &text); err == nil {
			p.Options = append(p.Options, text)
			continue
		}
		var obj struct {
			Text string `json:"text"`
		}
		if err := json.Unmarshal(o, &obj); err != nil {
			return err
		}
		p.Options = append(p.Options, obj.Text)
	}
	return nil
}
