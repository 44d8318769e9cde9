package handlers

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/crapthings/storyboard/internal/database"
	"github.com/crapthings/storyboard/internal/netutil"
)

var startTime = time.Now()

// AppVersion is set from main at startup via ldflags.
var AppVersion = "dev"

// ClientCounter reports connected WebSocket clients.
type ClientCounter interface {
	ClientCount() int
}

type SystemHandler struct {
	db      *database.DB
	dataDir string
	port    int
	clients ClientCounter
}

func NewSystemHandler(db *database.DB, dataDir string, port int, clients ClientCounter) *SystemHandler {
	return &SystemHandler{db: db, dataDir: dataDir, port: port, clients: clients}
}

func (h *SystemHandler) Info(w http.ResponseWriter, r *http.Request) {
	dbSize := "unknown"
	if info, err := os.Stat(filepath.Join(h.dataDir, "storyboard.db")); err == nil {
		dbSize = formatBytes(info.Size())
	}

	var storyboards, shots, assets, inFlight int
	ctx := r.Context()
	h.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM storyboards").Scan(&storyboards)
	h.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM shots").Scan(&shots)
	h.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM assets").Scan(&assets)
	h.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM assets WHERE status IN ('pending', 'processing')").Scan(&inFlight)

	wsClients := 0
	if h.clients != nil {
		wsClients = h.clients.ClientCount()
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"version":          AppVersion,
		"go_version":       runtime.Version(),
		"os":               runtime.GOOS,
		"arch":             runtime.GOARCH,
		"uptime":           formatDuration(time.Since(startTime)),
		"db_size":          dbSize,
		"storyboard_count": storyboards,
		"shot_count":       shots,
		"asset_count":      assets,
		"in_flight_count":  inFlight,
		"ws_clients":       wsClients,
		"lan_ip":           netutil.GetLANIP(),
		"port":             h.port,
	})
}

func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.db.PingContext(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func formatDuration(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm", days, hours, minutes)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm", hours, minutes)
	}
	return fmt.Sprintf("%dm", minutes)
}

func formatBytes(b int64) string {
	const (
		KB = 1024
		MB = KB * 1024
		GB = MB * 1024
	)
	switch {
	case b >= GB:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(GB))
	case b >= MB:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(MB))
	case b >= KB:
		return fmt.Sprintf("%.1f KB", float64(b)/float64(KB))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
