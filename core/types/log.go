package types

// MaxTopicsPerLog is the maximum number of indexed topics in a single log
// event; LOG0..LOG4 opcodes allow 0-4 topics.
const MaxTopicsPerLog = 4

// Log represents a contract event emitted during execution. Only the
// consensus fields are filled by the journal; positional metadata is set by
// the block executor when the transaction result is assembled.
type Log struct {
	Address Address
	Topics  []Hash
	Data    []byte

	// Positional metadata, not part of consensus.
	TxIndex uint
	Index   uint
}
