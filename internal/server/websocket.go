package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// maxBacklog caps how many recent records a client may request on connect.
const maxBacklog = 1000

// defaultBacklog is sent when the client does not ask for a specific amount.
const defaultBacklog = 100

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleWebSocket upgrades to WebSocket and streams records to the client:
// a bounded backlog of the most recent records first, then live records in
// ingestion order until the client disconnects or falls behind.
func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	// Subscribe before reading the backlog so a record ingested in between
	// is not lost; a record in both is deduplicated by sequence below.
	sub := s.hub.Subscribe()
	defer s.hub.Unsubscribe(sub)

	// Read pump — detect client disconnect.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				conn.Close()
				return
			}
		}
	}()

	backlog := backlogSize(c.Query("backlog"))
	records := s.idx.Snapshot()
	if len(records) > backlog {
		records = records[len(records)-backlog:]
	}
	var lastSeq, lastSession uint64
	for _, rec := range records {
		if err := conn.WriteJSON(toDTO(rec)); err != nil {
			return
		}
		lastSeq, lastSession = rec.Seq, rec.Session
	}

	// Deduplicate the overlap between backlog and live stream. Only records
	// from the same ingestion session count as duplicates: a truncation
	// resync bumps the session and restarts the sequence, so low numbers
	// from a later session are new records.
	dedup := lastSeq > 0
	for rec := range sub.C() {
		if dedup {
			if rec.Session == lastSession && rec.Seq <= lastSeq {
				continue
			}
			dedup = false
		}
		if err := conn.WriteJSON(toDTO(rec)); err != nil {
			s.log.Debug("websocket write failed", zap.Error(err))
			return
		}
	}
	// Channel closed: the hub dropped us as a slow consumer or is shutting
	// down. Either way the session is over.
}

func backlogSize(raw string) int {
	if raw == "" {
		return defaultBacklog
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return defaultBacklog
	}
	if n > maxBacklog {
		return maxBacklog
	}
	return n
}
