package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/idowu-gb/MAD-Project/server/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

type liveMessage struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

func (app *App) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || app.allowedOrigin == "" || origin == app.allowedOrigin
		},
	}
}

// liveSession streams the session's state every time it changes
func (app *App) liveSession(rw http.ResponseWriter, r *http.Request) {
	s := sessionFromContext(r.Context())

	states, unsubscribe := s.Subscribe()
	defer unsubscribe()

	app.stream(rw, r, func(ctx context.Context, send func(liveMessage) bool) {
		for {
			select {
			case state := <-states:
				if !send(liveMessage{Type: "state", Data: state}) {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	})
}

// liveContactView streams the trips of ContactViewTrips and, when a
// contact is known (see viewableContactID), the panic alerts of that contact's owner
func (app *App) liveContactView(rw http.ResponseWriter, r *http.Request) {
	s := sessionFromContext(r.Context())

	watchAlerts := r.URL.Query().Get("contact_id") != "" || s.Snapshot().ContactID != 0
	contactID := uint(0)
	if watchAlerts {
		var ok bool
		if contactID, ok = app.viewableContactID(rw, r, s); !ok {
			return
		}
	}

	app.stream(rw, r, func(ctx context.Context, send func(liveMessage) bool) {
		trips := s.WatchContactViewTrips(ctx)

		var alerts <-chan []models.PanicAlert
		if watchAlerts {
			alerts = s.WatchPanicAlertsForContact(ctx, contactID)
		}

		for {
			select {
			case records, ok := <-trips:
				if !ok || !send(liveMessage{Type: "trips", Data: records}) {
					return
				}
			case records, ok := <-alerts:
				if !ok || !send(liveMessage{Type: "panic_alerts", Data: records}) {
					return
				}
			case <-ctx.Done():
				return
			}
		}
	})
}

// stream upgrades the request & runs 'produce' until the client goes away.
// 'send' reports whether the message was written.
func (app *App) stream(rw http.ResponseWriter, r *http.Request, produce func(ctx context.Context, send func(liveMessage) bool)) {
	upgrader := app.upgrader()
	conn, err := upgrader.Upgrade(rw, r, nil)
	if err != nil {
		logg.Errorf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	// Reads only serve to process pongs & notice the client closing
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	messages := make(chan liveMessage)
	go func() {
		defer cancel()
		produce(ctx, func(msg liveMessage) bool {
			select {
			case messages <- msg:
				return true
			case <-ctx.Done():
				return false
			}
		})
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case msg := <-messages:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(msg); err != nil {
				logg.Infof("live stream closed: %v", err)
				return
			}
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-ctx.Done():
			conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}

func parseContactID(param string) (uint, bool) {
	id, err := strconv.ParseUint(param, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}
