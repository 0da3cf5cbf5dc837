package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/moyu-x/data-librarian/pkg/logger"
	"github.com/moyu-x/data-librarian/pkg/runctl"
)

// Service 控制面需要的操作
type Service interface {
	StartScan(root string) runctl.StartResult
	PollScan() runctl.Snapshot
	ScanStatus() runctl.Status
	CancelScan() runctl.CancelResult

	StartSplit(folder string, maxMB float64, initialPages int) runctl.StartResult
	PollSplit() runctl.Snapshot
	SplitStatus() runctl.Status
	CancelSplit() runctl.CancelResult

	StartSort(folder string, dryRun bool) runctl.StartResult
	PollSort() runctl.Snapshot
	SortStatus() runctl.Status
	CancelSort() runctl.CancelResult
}

// 请求体字段都是可选的；无法解析时按未提供处理
type runRequest struct {
	TargetFolder     string `json:"target_folder"`
	MaxSizeMB        any    `json:"max_size_mb"`
	InitialPageCount any    `json:"initial_page_count"`
	DryRun           bool   `json:"dry_run"`
}

type Server struct {
	svc  Service
	mux  *http.ServeMux
	http *http.Server
}

func New(addr string, svc Service) *Server {
	s := &Server{svc: svc, mux: http.NewServeMux()}
	s.routes()
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /run_script", s.handleRunScript)
	s.mux.HandleFunc("GET /get_output", s.handleGetOutput)
	s.mux.HandleFunc("GET /check_status", s.handleCheckStatus)
	s.mux.HandleFunc("GET /cancel_script", s.handleCancelScript)
	s.mux.HandleFunc("POST /cancel_script", s.handleCancelScript)

	s.mux.HandleFunc("POST /run_pdf_splitter", s.handleRunSplitter)
	s.mux.HandleFunc("GET /get_pdf_output", s.handleGetPDFOutput)
	s.mux.HandleFunc("POST /get_pdf_output", s.handleGetPDFOutput)
	s.mux.HandleFunc("GET /check_pdf_status", s.handleCheckPDFStatus)
	s.mux.HandleFunc("POST /check_pdf_status", s.handleCheckPDFStatus)
	s.mux.HandleFunc("POST /cancel_pdf_splitter", s.handleCancelSplitter)

	s.mux.HandleFunc("POST /run_sorter", s.handleRunSorter)
	s.mux.HandleFunc("GET /get_sorter_output", s.handleGetSorterOutput)
	s.mux.HandleFunc("GET /check_sorter_status", s.handleCheckSorterStatus)
	s.mux.HandleFunc("POST /cancel_sorter", s.handleCancelSorter)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	s.mux.ServeHTTP(w, r)
	logger.Get().Debug().
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Dur("elapsed", time.Since(start)).
		Msg("处理请求")
}

// ListenAndServe 启动监听，ctx 结束时优雅关闭
func (s *Server) ListenAndServe(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Get().Info().Msgf("控制面监听于 %s", s.http.Addr)
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Get().Info().Msg("正在关闭控制面...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func decodeRequest(r *http.Request) runRequest {
	var req runRequest
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil || len(body) == 0 {
		return req
	}
	if err := json.Unmarshal(body, &req); err != nil {
		logger.Get().Warn().Err(err).Str("path", r.URL.Path).Msg("请求体不是有效的 JSON，使用默认值")
		return runRequest{}
	}
	return req
}

// toFloat 接受数字或数字字符串，其他情况返回 0
func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Get().Error().Err(err).Msg("写入响应失败")
	}
}

func (s *Server) handleRunScript(w http.ResponseWriter, r *http.Request) {
	req := decodeRequest(r)
	writeJSON(w, s.svc.StartScan(req.TargetFolder))
}

func (s *Server) handleGetOutput(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.svc.PollScan())
}

func (s *Server) handleCheckStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.svc.ScanStatus())
}

func (s *Server) handleCancelScript(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.svc.CancelScan())
}

func (s *Server) handleRunSplitter(w http.ResponseWriter, r *http.Request) {
	req := decodeRequest(r)
	writeJSON(w, s.svc.StartSplit(req.TargetFolder, toFloat(req.MaxSizeMB), int(toFloat(req.InitialPageCount))))
}

func (s *Server) handleGetPDFOutput(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.svc.PollSplit())
}

func (s *Server) handleCheckPDFStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.svc.SplitStatus())
}

func (s *Server) handleCancelSplitter(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.svc.CancelSplit())
}

func (s *Server) handleRunSorter(w http.ResponseWriter, r *http.Request) {
	req := decodeRequest(r)
	writeJSON(w, s.svc.StartSort(req.TargetFolder, req.DryRun))
}

func (s *Server) handleGetSorterOutput(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.svc.PollSort())
}

func (s *Server) handleCheckSorterStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.svc.SortStatus())
}

func (s *Server) handleCancelSorter(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.svc.CancelSort())
}
