package ws

// Subscriber abstracts a streaming client.
type Subscriber interface {
	Send([]byte) error
	Close()
}

// Hub fans task events out to the owning user's connected clients.
type Hub struct {
	clients   map[int64]map[Subscriber]struct{}
	register  chan subscription
	unreg     chan subscription
	broadcast chan event
}

// event couples a payload with the owning user.
type event struct {
	userID  int64
	payload []byte
}

// subscription defines register/unregister requests.
type subscription struct {
	userID int64
	client Subscriber
}

// NewHub creates a running Hub.
func NewHub() *Hub {
	h := &Hub{
		clients:   make(map[int64]map[Subscriber]struct{}),
		register:  make(chan subscription),
		unreg:     make(chan subscription),
		broadcast: make(chan event),
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	for {
		select {
		case sub := <-h.register:
			if _, ok := h.clients[sub.userID]; !ok {
				h.clients[sub.userID] = make(map[Subscriber]struct{})
			}
			h.clients[sub.userID][sub.client] = struct{}{}
		case sub := <-h.unreg:
			if clients, ok := h.clients[sub.userID]; ok {
				delete(clients, sub.client)
				if len(clients) == 0 {
					delete(h.clients, sub.userID)
				}
			}
		case ev := <-h.broadcast:
			clients, ok := h.clients[ev.userID]
			if !ok {
				continue
			}
			for c := range clients {
				if err := c.Send(ev.payload); err != nil {
					c.Close()
					delete(clients, c)
				}
			}
			if len(clients) == 0 {
				delete(h.clients, ev.userID)
			}
		}
	}
}

// Register adds a client to a user's event stream.
func (h *Hub) Register(userID int64, client Subscriber) {
	h.register <- subscription{userID: userID, client: client}
}

// Unregister removes a client.
func (h *Hub) Unregister(userID int64, client Subscriber) {
	h.unreg <- subscription{userID: userID, client: client}
}

// Broadcast delivers payload to every client subscribed for the user.
func (h *Hub) Broadcast(userID int64, payload []byte) {
	h.broadcast <- event{userID: userID, payload: payload}
}
