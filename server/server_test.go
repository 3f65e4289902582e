package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/jobtalk/jobtalk/analyzer"
	"github.com/jobtalk/jobtalk/config"
	"github.com/jobtalk/jobtalk/embedding"
	"github.com/jobtalk/jobtalk/extract"
	"github.com/jobtalk/jobtalk/llm"
	"github.com/jobtalk/jobtalk/logging"
	"github.com/jobtalk/jobtalk/vectorstore"
)

func newTestServer(t *testing.T, provider llm.Provider) *Server {
	t.Helper()
	cfg := &config.Config{}
	cfg.ChunkSize = config.DefaultChunkSize
	cfg.ChunkOverlap = config.DefaultChunkOverlap
	cfg.TopK = config.DefaultTopK
	cfg.PDFParseURL = "http://unused.invalid"

	log := logging.New()
	log.SetOutput(&strings.Builder{})

	return New(cfg, log, vectorstore.NewMemoryStore(), embedding.NewHashEmbedder(128), provider)
}

func postJSON(t *testing.T, handler http.Handler, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req := httptest.NewRequest("POST", path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func postFile(t *testing.T, handler http.Handler, path, filename, contentType string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreatePart(textproto.MIMEHeader{
		"Content-Disposition": {`form-data; name="file"; filename="` + filename + `"`},
		"Content-Type":        {contentType},
	})
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	part.Write(data)
	writer.Close()

	req := httptest.NewRequest("POST", path, &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestChat_EndToEnd(t *testing.T) {
	provider := llm.NewMockProvider()
	provider.SetResponse("Seven years, mostly on backend services.")
	s := newTestServer(t, provider)
	handler := s.Handler()

	rec := postJSON(t, handler, "/api/chat", map[string]any{
		"message":    "How much Go experience does the candidate have?",
		"resumeText": "Seven years of Go. Led a platform team. Shipped large distributed systems.",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d body: %s", rec.Code, rec.Body.String())
	}

	var resp chatResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Reply != "Seven years, mostly on backend services." {
		t.Errorf("reply: %q", resp.Reply)
	}
	if resp.Degraded {
		t.Error("turn should not be degraded")
	}
	if resp.SessionID == "" {
		t.Error("session id not assigned")
	}

	// The provider saw retrieved context
	lastReq := provider.LastRequest()
	if lastReq == nil || !strings.Contains(lastReq.Messages[1].Content, "Seven years of Go.") {
		t.Error("retrieved context not passed to the provider")
	}

	// Second turn on the same session skips bootstrap but still retrieves
	rec = postJSON(t, handler, "/api/chat", map[string]any{
		"message":   "Who did they lead?",
		"sessionId": resp.SessionID,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("second turn status: %d", rec.Code)
	}
	var second chatResponse
	json.Unmarshal(rec.Body.Bytes(), &second)
	if second.SessionID != resp.SessionID {
		t.Error("session id changed between turns")
	}
}

func TestChat_MissingMessage(t *testing.T) {
	s := newTestServer(t, llm.NewMockProvider())
	rec := postJSON(t, s.Handler(), "/api/chat", map[string]any{"resumeText": "text"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rec.Code)
	}
	var body errorResponse
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Error == "" {
		t.Error("error body missing")
	}
}

func TestChat_DegradesWithoutProvider(t *testing.T) {
	s := newTestServer(t, nil)
	rec := postJSON(t, s.Handler(), "/api/chat", map[string]any{
		"message":      "Anything?",
		"resumeChunks": []string{"chunk one", "chunk two"},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("chat must answer even without a provider, got %d", rec.Code)
	}
	var resp chatResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if !resp.Degraded {
		t.Error("fallback reply should be flagged degraded")
	}
	if resp.Reply == "" {
		t.Error("degraded turn still needs a reply")
	}
}

func TestAnalyze_Endpoint(t *testing.T) {
	provider := llm.NewMockProvider()
	provider.SetResponse(`{"match": 77, "strengths": ["Go"], "gaps": ["Java"], "insights": "Decent fit."}`)
	s := newTestServer(t, provider)

	rec := postJSON(t, s.Handler(), "/api/analyze", map[string]string{
		"resumeText": "Go engineer",
		"jdText":     "Go and Java",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d body: %s", rec.Code, rec.Body.String())
	}
	var result analyzer.Result
	json.Unmarshal(rec.Body.Bytes(), &result)
	if result.Match != 77 {
		t.Errorf("match: got %d", result.Match)
	}
}

func TestAnalyze_EmptyInputIs400(t *testing.T) {
	s := newTestServer(t, llm.NewMockProvider())
	rec := postJSON(t, s.Handler(), "/api/analyze", map[string]string{"resumeText": "", "jdText": "jd"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rec.Code)
	}
}

func TestAnalyze_MalformedOutputIs502(t *testing.T) {
	provider := llm.NewMockProvider()
	provider.SetResponse("definitely not json")
	s := newTestServer(t, provider)

	rec := postJSON(t, s.Handler(), "/api/analyze", map[string]string{
		"resumeText": "resume", "jdText": "jd",
	})
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status: got %d, want 502", rec.Code)
	}
	var body errorResponse
	json.Unmarshal(rec.Body.Bytes(), &body)
	if body.Error != "MALFORMED_RESPONSE" {
		t.Errorf("error code: got %q", body.Error)
	}
}

func TestUpload_TextFile(t *testing.T) {
	s := newTestServer(t, nil)
	rec := postFile(t, s.Handler(), "/api/upload", "resume.txt", "text/plain",
		[]byte(strings.Repeat("resume content. ", 100)))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d body: %s", rec.Code, rec.Body.String())
	}
	var resp uploadResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Text == "" || len(resp.Chunks) == 0 {
		t.Errorf("upload response incomplete: %+v", resp)
	}
}

func TestUpload_RejectsPDF(t *testing.T) {
	s := newTestServer(t, nil)
	rec := postFile(t, s.Handler(), "/api/upload", "resume.pdf", "application/pdf", []byte("%PDF-1.4"))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "parse-pdf") {
		t.Errorf("error should point at the pdf endpoint: %s", rec.Body.String())
	}
}

func TestUpload_RejectsUnsupportedType(t *testing.T) {
	s := newTestServer(t, nil)
	rec := postFile(t, s.Handler(), "/api/upload", "resume.docx", "application/octet-stream", []byte("data"))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rec.Code)
	}
}

func TestParsePDF_RejectsNonPDF(t *testing.T) {
	s := newTestServer(t, nil)
	rec := postFile(t, s.Handler(), "/api/parse-pdf", "resume.txt", "text/plain", []byte("text"))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want 400", rec.Code)
	}
}

func TestParsePDF_ProxiesToService(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"text": strings.Repeat("parsed text. ", 50)})
	}))
	defer upstream.Close()

	s := newTestServer(t, nil)
	s.cfg.PDFParseURL = upstream.URL
	s.extractor = extract.NewClient(upstream.URL)

	rec := postFile(t, s.Handler(), "/api/parse-pdf", "resume.pdf", "application/pdf", []byte("%PDF-1.4"))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d body: %s", rec.Code, rec.Body.String())
	}
	var resp uploadResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Text == "" || len(resp.Chunks) == 0 {
		t.Errorf("parse response incomplete: %+v", resp)
	}
}

func TestJD_TextUpload(t *testing.T) {
	s := newTestServer(t, nil)
	rec := postFile(t, s.Handler(), "/api/jd", "jd.txt", "text/plain", []byte("Looking for a Go engineer."))
	if rec.Code != http.StatusOK {
		t.Fatalf("status: %d body: %s", rec.Code, rec.Body.String())
	}
	var resp uploadResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Text != "Looking for a Go engineer." {
		t.Errorf("text: %q", resp.Text)
	}
	if len(resp.Chunks) != 0 {
		t.Error("jd upload should not return chunks")
	}
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, nil)
	req := httptest.NewRequest("GET", "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("status: %d", rec.Code)
	}
}
