package redis

import (
	"context"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/picdex/internal/db"
)

const duplicateReply = "DUPLICATE "

// hsetAtomic rejects any pre-existing or repeated key before writing, so a
// batch becomes visible to FT.SEARCH all at once or not at all.
// ARGV: overwrite flag, then per key: field count followed by field/value pairs.
var hsetAtomic = rueidis.NewLuaScript(`
local overwrite = ARGV[1] == '1'
local seen = {}
for _, k in ipairs(KEYS) do
  if not overwrite and (seen[k] or redis.call('EXISTS', k) == 1) then
    return redis.error_reply('` + duplicateReply + `' .. k)
  end
  seen[k] = true
end
local pos = 2
for _, k in ipairs(KEYS) do
  local n = tonumber(ARGV[pos])
  pos = pos + 1
  if overwrite then
    redis.call('DEL', k)
  end
  for _ = 1, n do
    redis.call('HSET', k, ARGV[pos], ARGV[pos + 1])
    pos = pos + 2
  end
end
return #KEYS
`)

// HSetAtomic writes all hashes with one Lua script invocation.
func (s *Store) HSetAtomic(ctx context.Context, items []db.HashSetItem, overwrite bool) error {
	if len(items) == 0 {
		return nil
	}
	keys, args := hsetAtomicArgs(items, overwrite)

	if err := hsetAtomic.Exec(ctx, s.client, keys, args).Error(); err != nil {
		if key, ok := duplicateKey(err); ok {
			return &db.KeyExistsError{Key: key}
		}
		return &db.Error{Op: db.OpEval, Err: err}
	}
	return nil
}

func hsetAtomicArgs(items []db.HashSetItem, overwrite bool) (keys, args []string) {
	keys = make([]string, len(items))
	flag := "0"
	if overwrite {
		flag = "1"
	}
	args = []string{flag}
	for i, it := range items {
		keys[i] = it.Key
		args = append(args, strconv.Itoa(len(it.Fields)))
		for f, v := range it.Fields {
			args = append(args, f, v)
		}
	}
	return keys, args
}

func duplicateKey(err error) (string, bool) {
	re, ok := rueidis.IsRedisErr(err)
	if !ok {
		return "", false
	}
	msg := re.Error()
	idx := strings.Index(msg, duplicateReply)
	if idx < 0 {
		return "", false
	}
	return strings.TrimSpace(msg[idx+len(duplicateReply):]), true
}
