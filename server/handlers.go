package server

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/jobtalk/jobtalk/chunker"
	"github.com/jobtalk/jobtalk/errors"
	"github.com/jobtalk/jobtalk/extract"
	"github.com/jobtalk/jobtalk/retrieval"
)

type chatRequest struct {
	Message      string   `json:"message"`
	ResumeText   string   `json:"resumeText,omitempty"`
	ResumeChunks []string `json:"resumeChunks,omitempty"`
	SessionID    string   `json:"sessionId,omitempty"`
	Bootstrap    bool     `json:"bootstrap,omitempty"`
}

type chatResponse struct {
	Reply     string `json:"reply"`
	Degraded  bool   `json:"degraded,omitempty"`
	SessionID string `json:"sessionId"`
}

// handleChat runs one chat turn: bootstrap the session if resume material is
// present and not yet indexed, retrieve context, and compose a reply. The
// turn always answers; bootstrap and retrieval failures only degrade it.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "/api/chat", errors.InvalidInput("invalid request body", errors.WithCause(err)))
		return
	}
	if req.Message == "" {
		s.writeError(w, "/api/chat", errors.InvalidInput("message is required"))
		return
	}

	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	start := time.Now()
	ctx := r.Context()

	if !s.retriever.Sessions().Ready(sessionID) || req.Bootstrap {
		chunks := s.chatChunks(sessionID, req)
		if len(chunks) > 0 {
			// Bootstrap failures leave the session empty; the turn proceeds
			// with whatever retrieval can still do.
			_ = s.retriever.Bootstrap(ctx, sessionID, chunks)
		}
	}

	contextText, retrievalDegraded := s.retriever.Retrieve(ctx, sessionID, req.Message)
	reply, answerDegraded := s.composer.Answer(ctx, req.Message, contextText)
	degraded := retrievalDegraded || answerDegraded

	s.log.ChatTurn(sessionID, time.Since(start), degraded)
	s.writeJSON(w, http.StatusOK, chatResponse{
		Reply:     reply,
		Degraded:  degraded,
		SessionID: sessionID,
	})
}

// chatChunks builds the chunk sequence for bootstrap from whichever resume
// material the request carries: pre-chunked texts win over raw text.
func (s *Server) chatChunks(sessionID string, req chatRequest) []chunker.Chunk {
	if len(req.ResumeChunks) > 0 {
		return chunker.FromTexts(req.ResumeChunks, retrieval.Namespace(sessionID))
	}
	if req.ResumeText != "" {
		chunks, err := chunker.SplitWithSource(req.ResumeText, retrieval.Namespace(sessionID), s.cfg.ChunkSize, s.cfg.ChunkOverlap)
		if err != nil {
			s.log.Warn("chunking_failed", map[string]interface{}{"session": sessionID, "error": err.Error()})
			return nil
		}
		return chunks
	}
	return nil
}

type analyzeRequest struct {
	ResumeText string `json:"resumeText"`
	JDText     string `json:"jdText"`
}

// handleAnalyze scores a resume against a job description.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, "/api/analyze", errors.InvalidInput("invalid request body", errors.WithCause(err)))
		return
	}

	result, err := s.analyzer.Analyze(r.Context(), req.ResumeText, req.JDText)
	if err != nil {
		s.writeError(w, "/api/analyze", err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

type uploadResponse struct {
	Text   string   `json:"text"`
	Chunks []string `json:"chunks,omitempty"`
}

// handleUpload extracts resume text from a plain text upload and returns it
// pre-chunked. PDFs must go through /api/parse-pdf instead.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	filename, contentType, data, err := s.readUpload(r)
	if err != nil {
		s.writeError(w, "/api/upload", err)
		return
	}
	if extract.IsPDF(filename, contentType) {
		s.writeError(w, "/api/upload",
			errors.InvalidInput("PDF uploads must use /api/parse-pdf"))
		return
	}

	text, err := s.extractor.FromUpload(r.Context(), filename, contentType, data)
	if err != nil {
		s.writeError(w, "/api/upload", err)
		return
	}

	chunks, err := chunker.Split(text, s.cfg.ChunkSize, s.cfg.ChunkOverlap)
	if err != nil {
		s.writeError(w, "/api/upload", err)
		return
	}

	s.log.UploadDone(filename, len(text), len(chunks))
	s.writeJSON(w, http.StatusOK, uploadResponse{
		Text:   text,
		Chunks: chunker.Texts(chunks),
	})
}

// handleJD extracts job description text. Both PDF and TXT are accepted here;
// job descriptions don't feed the vector store so no chunks are returned.
func (s *Server) handleJD(w http.ResponseWriter, r *http.Request) {
	filename, contentType, data, err := s.readUpload(r)
	if err != nil {
		s.writeError(w, "/api/jd", err)
		return
	}

	text, err := s.extractor.FromUpload(r.Context(), filename, contentType, data)
	if err != nil {
		s.writeError(w, "/api/jd", err)
		return
	}

	s.log.UploadDone(filename, len(text), 0)
	s.writeJSON(w, http.StatusOK, uploadResponse{Text: text})
}

// handleParsePDF routes a PDF through the parsing service and returns the
// extracted text pre-chunked for the chat flow.
func (s *Server) handleParsePDF(w http.ResponseWriter, r *http.Request) {
	filename, contentType, data, err := s.readUpload(r)
	if err != nil {
		s.writeError(w, "/api/parse-pdf", err)
		return
	}
	if !extract.IsPDF(filename, contentType) {
		s.writeError(w, "/api/parse-pdf",
			errors.InvalidInput("only PDF uploads are accepted on this endpoint"))
		return
	}

	text, err := s.extractor.ParsePDF(r.Context(), filename, data)
	if err != nil {
		s.writeError(w, "/api/parse-pdf", err)
		return
	}

	chunks, err := chunker.Split(text, s.cfg.ChunkSize, s.cfg.ChunkOverlap)
	if err != nil {
		s.writeError(w, "/api/parse-pdf", err)
		return
	}

	s.log.UploadDone(filename, len(text), len(chunks))
	s.writeJSON(w, http.StatusOK, uploadResponse{
		Text:   text,
		Chunks: chunker.Texts(chunks),
	})
}

// readUpload pulls the single "file" part out of a multipart request.
func (s *Server) readUpload(r *http.Request) (filename, contentType string, data []byte, err error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return "", "", nil, errors.InvalidInput("invalid multipart request", errors.WithCause(err))
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return "", "", nil, errors.InvalidInput("missing file field", errors.WithCause(err))
	}
	defer file.Close()

	data, err = io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		return "", "", nil, errors.Wrap(err, "failed to read upload")
	}
	return header.Filename, header.Header.Get("Content-Type"), data, nil
}
