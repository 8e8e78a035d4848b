package target

import (
	"golang.org/x/exp/slices"
	"golang.org/x/sys/unix"

	"github.com/hitzhangjie/tracectl/pkg/ptrace"
)

// Thread 被跟踪线程信息
type Thread struct {
	Tid    int                 // thread ID
	Regs   ptrace.Regs         // 通用寄存器缓存，恢复执行前统一写回
	Ext    ptrace.ExtendedRegs // 扩展寄存器缓存
	Status unix.WaitStatus     // 最近一次观察到的wait status
}

// PC returns the cached instruction pointer.
func (t *Thread) PC() uint64 {
	return t.Regs.PC()
}

// threadRegistry owns the traced threads, iteration follows registration
// order.
type threadRegistry struct {
	threads map[int]*Thread
	order   []int
}

func newThreadRegistry() *threadRegistry {
	return &threadRegistry{threads: map[int]*Thread{}}
}

func (r *threadRegistry) get(tid int) (*Thread, bool) {
	th, ok := r.threads[tid]
	return th, ok
}

// add inserts th unless its tid is already known, the registered thread is
// returned either way.
func (r *threadRegistry) add(th *Thread) (*Thread, bool) {
	if old, ok := r.threads[th.Tid]; ok {
		return old, false
	}
	r.threads[th.Tid] = th
	r.order = append(r.order, th.Tid)
	return th, true
}

func (r *threadRegistry) remove(tid int) {
	if _, ok := r.threads[tid]; !ok {
		return
	}
	delete(r.threads, tid)
	if i := slices.Index(r.order, tid); i >= 0 {
		r.order = slices.Delete(r.order, i, i+1)
	}
}

func (r *threadRegistry) clear() {
	r.threads = map[int]*Thread{}
	r.order = nil
}

func (r *threadRegistry) len() int {
	return len(r.order)
}

func (r *threadRegistry) list() []*Thread {
	threads := make([]*Thread, 0, len(r.order))
	for _, tid := range r.order {
		threads = append(threads, r.threads[tid])
	}
	return threads
}

// detachOrder lists the threads in registration order with the thread
// group leader pid moved to the end.
func (r *threadRegistry) detachOrder(pid int) []*Thread {
	threads := r.list()
	if i := slices.IndexFunc(threads, func(th *Thread) bool { return th.Tid == pid }); i >= 0 {
		leader := threads[i]
		threads = append(slices.Delete(threads, i, i+1), leader)
	}
	return threads
}
