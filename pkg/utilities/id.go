package utilities

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/segmentio/ksuid"
)

var (
	nodeOnce sync.Once
	node     *snowflake.Node
)

// NewKSUID generates a new globally unique KSUID string.
func NewKSUID() string {
	return ksuid.New().String()
}

// NewSnowflakeID generates a snowflake ID string using a node ID from
// the environment variable SNOWFLAKE_NODE (default 1). The node is created once per
// process so sequence numbers stay monotonic. If node setup fails it falls back to a KSUID.
func NewSnowflakeID() string {
	nodeOnce.Do(func() {
		nodeID := int64(1)
		if v, err := strconv.ParseInt(os.Getenv("SNOWFLAKE_NODE"), 10, 64); err == nil {
			nodeID = v
		}
		node, _ = snowflake.NewNode(nodeID)
	})
	if node == nil {
		return NewKSUID()
	}
	return node.Generate().String()
}

// ticketSuffixLen matches the nine character suffix printed on issued tickets.
const ticketSuffixLen = 9

// NewTicketCode returns TICKET-{unix millis}-{suffix}. The suffix is taken from the
// random payload of a fresh KSUID, so two codes minted in the same millisecond still
// differ with overwhelming probability.
func NewTicketCode(now time.Time) string {
	id := ksuid.New()
	payload := id.Payload()
	var b strings.Builder
	const alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	for i := 0; i < ticketSuffixLen; i++ {
		b.WriteByte(alphabet[int(payload[i])%len(alphabet)])
	}
	return fmt.Sprintf("TICKET-%d-%s", now.UnixMilli(), b.String())
}
