package apiserver

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"RedisVSCode-Webview/internal/api"
	"RedisVSCode-Webview/internal/connection"
	"RedisVSCode-Webview/internal/logger"
)

const (
	defaultCount    = 500
	maxBodySize     = 8 << 20
	keyNotFoundText = "Key with this name does not exist."
)

// keyResponse and shardResponse are the wire shapes of a scan reply. Names
// are rendered according to the encoding query parameter.
type keyResponse struct {
	Name   any    `json:"name"`
	Type   string `json:"type,omitempty"`
	TTL    *int64 `json:"ttl,omitempty"`
	Size   *int64 `json:"size,omitempty"`
	Length *int64 `json:"length,omitempty"`
}

type shardResponse struct {
	Cursor     uint64        `json:"cursor"`
	Total      int64         `json:"total"`
	Scanned    int64         `json:"scanned"`
	Keys       []keyResponse `json:"keys"`
	MaxResults *int64        `json:"maxResults,omitempty"`
}

func (s *Server) handleGetKeys(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	config, ok := s.opts.Databases[id]
	if !ok {
		writeError(w, http.StatusNotFound, "Invalid database instance id.")
		return
	}

	var req connection.GetKeysRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "请求体格式错误："+err.Error())
		return
	}
	cursor, err := strconv.ParseUint(req.Cursor, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "cursor must be a numeric string")
		return
	}
	if req.Count <= 0 {
		req.Count = defaultCount
	}
	enc := connection.ParseEncoding(r.URL.Query().Get("encoding"))

	client, err := s.clients.get(r.Context(), config)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	out, err := s.scanKeys(r.Context(), client, scanQuery{
		db:         id,
		cursor:     cursor,
		count:      int64(req.Count),
		match:      req.Match,
		keyType:    req.Type,
		keysInfo:   req.KeysInfo,
		maxResults: s.opts.MaxResults,
	})
	if err != nil {
		if api.IsCancel(err) {
			return
		}
		logger.Error(err, "扫描 Key 失败：db=%s match=%s cursor=%d", id, req.Match, cursor)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := shardResponse{
		Cursor:  out.cursor,
		Total:   out.total,
		Scanned: out.scanned,
		Keys:    make([]keyResponse, len(out.keys)),
	}
	if s.opts.MaxResults > 0 {
		limit := s.opts.MaxResults
		resp.MaxResults = &limit
	}
	for i, k := range out.keys {
		resp.Keys[i] = keyResponse{Name: k.Name.Encode(enc), Type: k.Type, TTL: k.TTL, Size: k.Size, Length: k.Length}
	}
	writeJSON(w, http.StatusOK, []shardResponse{resp})
}

// handleGetKeysMetadata answers with one entry per requested name, in
// request order. Types are always read from Redis; the type field of the
// request is only logged.
func (s *Server) handleGetKeysMetadata(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	config, ok := s.opts.Databases[id]
	if !ok {
		writeError(w, http.StatusNotFound, "Invalid database instance id.")
		return
	}

	var req connection.KeysMetadataRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "请求体格式错误："+err.Error())
		return
	}
	enc := connection.ParseEncoding(r.URL.Query().Get("encoding"))
	if len(req.Keys) == 0 {
		writeJSON(w, http.StatusOK, []keyResponse{})
		return
	}

	client, err := s.clients.get(r.Context(), config)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	names := make([]string, len(req.Keys))
	for i, n := range req.Keys {
		names[i] = string(n)
	}
	infos, err := client.KeysInfo(r.Context(), names)
	if err != nil {
		if api.IsCancel(err) {
			return
		}
		logger.Error(err, "获取 Key 元数据失败：db=%s count=%d type=%s", id, len(names), req.Type)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	resp := make([]keyResponse, len(infos))
	for i, k := range infos {
		resp[i] = keyResponse{Name: k.Name.Encode(enc), Type: k.Type, TTL: k.TTL, Size: k.Size, Length: k.Length}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeleteKeys(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	config, ok := s.opts.Databases[id]
	if !ok {
		writeError(w, http.StatusNotFound, "Invalid database instance id.")
		return
	}

	var req connection.DeleteKeysRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "请求体格式错误："+err.Error())
		return
	}
	if len(req.KeyNames) == 0 {
		writeError(w, http.StatusBadRequest, "keyNames should not be empty")
		return
	}

	client, err := s.clients.get(r.Context(), config)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}

	names := make([]string, len(req.KeyNames))
	for i, n := range req.KeyNames {
		names[i] = string(n)
	}
	affected, err := client.DeleteKeys(r.Context(), names)
	if err != nil {
		logger.Error(err, "删除 Key 失败：db=%s count=%d", id, len(names))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if affected == 0 {
		writeError(w, http.StatusNotFound, keyNotFoundText)
		return
	}
	logger.Infof("删除 Key 成功：db=%s affected=%d", id, affected)
	writeJSON(w, http.StatusOK, connection.DeleteKeysResponse{Affected: affected})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warnf("写入响应失败：%v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, connection.APIError{
		StatusCode: status,
		Message:    message,
		Error:      http.StatusText(status),
	})
}
