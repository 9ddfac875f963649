// Package observable は購読可能な値コンテナを提供する。
package observable

import "sync"

// Value は現在値を保持し、変更を購読者に通知する。
//
// 通知は購読順（FIFO）に直列化して行う。コールバック中に同じValueのSet/Updateを
// 同期的に呼び出してはならない（デッドロックする）。Getとunsubscribeは呼び出してよい。
type Value[T any] struct {
	notifyMu sync.Mutex // 通知の直列化
	mu       sync.Mutex // v, subs, nextID を保護
	v        T
	subs     []subscriber[T]
	nextID   uint64
	clone    func(T) T
}

type subscriber[T any] struct {
	id uint64
	fn func(T)
}

// Option はValueの生成オプション。
type Option[T any] func(*Value[T])

// WithClone はGetと通知のたびに値を複製する関数を設定する。
// スライスやポインタを保持する場合、購読者が内部状態を共有しないようにする。
func WithClone[T any](clone func(T) T) Option[T] {
	return func(v *Value[T]) { v.clone = clone }
}

// New は初期値を持つValueを生成する。
func New[T any](initial T, opts ...Option[T]) *Value[T] {
	v := &Value[T]{v: initial}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Get は現在値のスナップショットを返す。
func (x *Value[T]) Get() T {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.copy(x.v)
}

// Set は値を置き換え、全購読者に通知する。
func (x *Value[T]) Set(v T) {
	x.Update(func(T) T { return v })
}

// Update は現在値にfnを適用した結果で値を置き換え、全購読者に通知する。
// fnには現在値の複製が渡される。
func (x *Value[T]) Update(fn func(T) T) {
	x.notifyMu.Lock()
	defer x.notifyMu.Unlock()

	x.mu.Lock()
	x.v = fn(x.copy(x.v))
	current := x.v
	subs := make([]subscriber[T], len(x.subs))
	copy(subs, x.subs)
	x.mu.Unlock()

	for _, s := range subs {
		s.fn(x.copy(current))
	}
}

// Subscribe はfnを購読者として登録し、現在値で即座に1回呼び出す。
// 戻り値の関数で購読を解除する。解除は何度呼んでもよい。
func (x *Value[T]) Subscribe(fn func(T)) (unsubscribe func()) {
	x.notifyMu.Lock()
	defer x.notifyMu.Unlock()

	x.mu.Lock()
	x.nextID++
	id := x.nextID
	x.subs = append(x.subs, subscriber[T]{id: id, fn: fn})
	current := x.v
	x.mu.Unlock()

	fn(x.copy(current))

	var once sync.Once
	return func() {
		once.Do(func() { x.remove(id) })
	}
}

// Len は購読者数を返す。
func (x *Value[T]) Len() int {
	x.mu.Lock()
	defer x.mu.Unlock()
	return len(x.subs)
}

func (x *Value[T]) remove(id uint64) {
	x.mu.Lock()
	defer x.mu.Unlock()
	for i, s := range x.subs {
		if s.id == id {
			x.subs = append(x.subs[:i:i], x.subs[i+1:]...)
			return
		}
	}
}

func (x *Value[T]) copy(v T) T {
	if x.clone == nil {
		return v
	}
	return x.clone(v)
}
