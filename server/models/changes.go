package models

import (
	"sync"

	"gorm.io/gorm"
)

const changeCallbackName = "safetrip:publish_change"

var feed = &changeFeed{subscribers: make(map[int]*changeSubscriber)}

type changeFeed struct {
	mu          sync.Mutex
	nextID      int
	subscribers map[int]*changeSubscriber
}

type changeSubscriber struct {
	tables map[string]bool
	ch     chan struct{}
}

// SubscribeToChanges returns a channel that receives a signal after any successful
// create, update or delete on one of 'tables'. Signals coalesce: a slow reader sees
// at most one pending signal. Call cancel to stop receiving.
func SubscribeToChanges(tables ...string) (<-chan struct{}, func()) {
	sub := &changeSubscriber{tables: make(map[string]bool), ch: make(chan struct{}, 1)}
	for _, table := range tables {
		sub.tables[table] = true
	}

	feed.mu.Lock()
	id := feed.nextID
	feed.nextID++
	feed.subscribers[id] = sub
	feed.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			feed.mu.Lock()
			delete(feed.subscribers, id)
			feed.mu.Unlock()
		})
	}

	return sub.ch, cancel
}

func publishChange(table string) {
	feed.mu.Lock()
	defer feed.mu.Unlock()

	for _, sub := range feed.subscribers {
		if !sub.tables[table] {
			continue
		}

		select {
		case sub.ch <- struct{}{}:
		default:
		}
	}
}

func registerChangeCallbacks(gormDB *gorm.DB) error {
	publish := func(tx *gorm.DB) {
		if tx.Error != nil || tx.Statement.Table == "" {
			return
		}
		publishChange(tx.Statement.Table)
	}

	callbacks := gormDB.Callback()
	if err := callbacks.Create().After("gorm:create").Register(changeCallbackName, publish); err != nil {
		return err
	}
	if err := callbacks.Update().After("gorm:update").Register(changeCallbackName, publish); err != nil {
		return err
	}
	return callbacks.Delete().After("gorm:delete").Register(changeCallbackName, publish)
}
