package flow

import (
	"strconv"
)

// numBuckets is the number of key buckets a transaction key is spread across.
const numBuckets = 6

var putChainTags = [][]byte{[]byte("uxxxx"), []byte("vxxxx"), []byte("yxxxx"), []byte("zxxxx")}

// makeKey assembles a transaction key of the form <prefix><bucket>:<seq>:<workerID>.
func makeKey(prefix string, workerID int, seq uint64, bucket int) []byte {

	key := make([]byte, 0, len(prefix)+32)
	key = append(key, prefix...)
	key = strconv.AppendInt(key, int64(bucket), 10)
	key = append(key, ':')
	key = strconv.AppendUint(key, seq, 10)
	key = append(key, ':')
	key = strconv.AppendInt(key, int64(workerID), 10)

	return key

}

func deriveKey(tag []byte, key []byte) []byte {

	derived := make([]byte, 0, len(tag)+len(key))
	derived = append(derived, tag...)
	return append(derived, key...)

}
