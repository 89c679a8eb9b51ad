package server

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"fortio.org/safecast"
	"github.com/bastiangx/langserve/internal/logger"
	"github.com/bastiangx/langserve/pkg/config"
	"github.com/bastiangx/langserve/pkg/identify"
	"github.com/charmbracelet/log"
	"github.com/vmihailenco/msgpack/v5"
)

// Server handles the IPC for language identification
type Server struct {
	classifier   identify.IClassifier
	config       *config.Config
	decoder      *msgpack.Decoder
	writer       *bufio.Writer
	encoder      *msgpack.Encoder
	logger       *log.Logger
	requestCount int
}

// NewServer creates a new identification server using stdin/stdout for IPC
func NewServer(classifier identify.IClassifier, cfg *config.Config) *Server {
	return NewServerWithIO(classifier, cfg, os.Stdin, os.Stdout)
}

// NewServerWithIO creates a server reading requests from r and writing responses to w
func NewServerWithIO(classifier identify.IClassifier, cfg *config.Config, r io.Reader, w io.Writer) *Server {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	bw := bufio.NewWriter(w)
	return &Server{
		classifier: classifier,
		config:     cfg,
		decoder:    msgpack.NewDecoder(bufio.NewReader(r)),
		writer:     bw,
		encoder:    msgpack.NewEncoder(bw),
		logger:     logger.New("ipc"),
	}
}

// Start announces readiness and serves requests until the input ends.
// A clean EOF returns nil.
func (s *Server) Start() error {
	s.logger.Debug("Starting server")
	if err := s.send(StatusResponse{Status: "ready"}); err != nil {
		return err
	}

	for {
		var raw msgpack.RawMessage
		if err := s.decoder.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				s.logger.Debugf("Input closed after %d requests", s.requestCount)
				return nil
			}
			s.logger.Errorf("Reading request: %v", err)
			return err
		}

		if err := s.handleRequest(raw); err != nil {
			return err
		}
	}
}

// handleRequest decodes one message and dispatches on its action.
// Only write failures are returned; bad requests get an error response.
func (s *Server) handleRequest(raw msgpack.RawMessage) error {
	s.requestCount++

	var req Request
	if err := msgpack.Unmarshal(raw, &req); err != nil {
		s.logger.Errorf("Unmarshaling request: %v", err)
		return s.sendError("", "invalid msgpack request", 400)
	}

	switch req.Action {
	case "", ActionIdentify:
		return s.handleIdentify(req)
	case ActionLanguages:
		return s.handleLanguages(req)
	case ActionHealth:
		return s.send(StatusResponse{ID: req.ID, Status: "ok"})
	default:
		return s.sendError(req.ID, fmt.Sprintf("unknown action: %s", req.Action), 400)
	}
}

func (s *Server) handleIdentify(req Request) error {
	if req.Text == "" {
		s.logger.Debug("Text is empty in request", "id", req.ID)
		return s.sendError(req.ID, "missing 't' parameter", 400)
	}
	if maxLen := s.config.Server.MaxTextLen; len(req.Text) > maxLen {
		s.logger.Debug("Text is too long in request", "id", req.ID, "len", len(req.Text))
		return s.sendError(req.ID, fmt.Sprintf("text exceeds maximum length of %d bytes", maxLen), 413)
	}

	start := time.Now()
	pred, err := s.classifier.Classify(req.Text)
	if err != nil {
		s.logger.Errorf("Classify failed: %v", err)
		return s.sendError(req.ID, err.Error(), 500)
	}
	elapsed := time.Since(start)

	scores := make([]ScoreEntry, len(pred.Scores))
	for i, sc := range pred.Scores {
		v, err := safecast.Conv[uint32](sc.Score)
		if err != nil {
			return s.sendError(req.ID, fmt.Sprintf("score out of range for %s", sc.Language.Code), 500)
		}
		scores[i] = ScoreEntry{Code: sc.Language.Code, Score: v}
	}

	return s.send(IdentifyResponse{
		ID:        req.ID,
		Lang:      pred.Language.Code,
		Name:      pred.Language.Name,
		Scores:    scores,
		TimeTaken: elapsed.Microseconds(),
	})
}

func (s *Server) handleLanguages(req Request) error {
	var infos []LanguageInfo
	// profile sizes are only known to the concrete classifier
	if c, ok := s.classifier.(interface {
		Profiles() []identify.LanguageProfile
	}); ok {
		for _, lp := range c.Profiles() {
			info := LanguageInfo{Code: lp.Language.Code, Name: lp.Language.Name}
			for _, p := range lp.Profiles {
				info.Sizes = append(info.Sizes, p.N())
				info.Grams = append(info.Grams, p.Len())
			}
			infos = append(infos, info)
		}
	} else {
		for _, l := range s.classifier.Languages() {
			infos = append(infos, LanguageInfo{Code: l.Code, Name: l.Name})
		}
	}
	return s.send(LanguagesResponse{ID: req.ID, Status: "ok", Languages: infos})
}

// send encodes one response and flushes it to the client.
func (s *Server) send(response any) error {
	if err := s.encoder.Encode(response); err != nil {
		s.logger.Errorf("Encoding response: %v", err)
		return err
	}
	return s.writer.Flush()
}

func (s *Server) sendError(id, message string, code int) error {
	return s.send(ErrorResponse{ID: id, Error: message, Code: code})
}
