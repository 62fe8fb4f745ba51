package pool

import "sync"

// ForgeTableSlots is the slot count of the open-addressing table the CRC
// forger fills with its 65536 two-byte prefix states. Twice the entry
// count keeps linear probe chains short and guarantees an empty slot
// terminates every probe.
const ForgeTableSlots = 1 << 17

// ForgeTablePool recycles forge slot tables between searches. A table is
// 1MiB, so reallocation per forged suffix would dominate batch runs.
type ForgeTablePool struct {
	pool sync.Pool
}

// NewForgeTablePool creates a new ForgeTablePool.
func NewForgeTablePool() *ForgeTablePool {
	return &ForgeTablePool{
		pool: sync.Pool{
			New: func() any {
				table := make([]uint64, ForgeTableSlots)
				return &table
			},
		},
	}
}

// Get retrieves a zeroed slot table from the pool.
func (ftp *ForgeTablePool) Get() []uint64 {
	table, _ := ftp.pool.Get().(*[]uint64)
	return *table
}

// Put clears the table and returns it to the pool for reuse.
// Tables of unexpected length are discarded.
func (ftp *ForgeTablePool) Put(table []uint64) {
	if len(table) != ForgeTableSlots {
		return
	}

	clear(table)
	ftp.pool.Put(&table)
}

var forgeDefaultPool = NewForgeTablePool()

// GetForgeTable retrieves a zeroed slot table from the default pool.
func GetForgeTable() []uint64 {
	return forgeDefaultPool.Get()
}

// PutForgeTable clears the table and returns it to the default pool.
func PutForgeTable(table []uint64) {
	forgeDefaultPool.Put(table)
}
