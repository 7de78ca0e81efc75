package builtin

import (
	"bytes"
	"database/sql"
	"encoding/hex"

	_ "github.com/mattn/go-sqlite3"
	"golang.org/x/crypto/blake2b"

	"github.com/cedar-lang/cedar/internal/cedarerr"
	"github.com/cedar-lang/cedar/internal/intern"
	"github.com/cedar-lang/cedar/internal/rt"
	"github.com/cedar-lang/cedar/internal/serialize"
)

// registerSerialize installs the `serialize` module: encode/decode against
// the §6 tag-prefixed value stream, a blake2b-256 checksum over an encoded
// value (for content-addressing or detecting a changed store entry without
// decoding it), and a save-db/load-db pair that persists an encoded value
// as a BLOB column via the sqlite3 driver — the durable-store half of
// "serialization" that a round-trip-to-bytes codec alone doesn't give a
// program.
func registerSerialize(reg *rt.Registry, t *intern.Table, mod *rt.Module) {
	def(reg, t, mod, "serialize/encode", func(reg *rt.Registry, d rt.Dispatcher, fiber *rt.Fiber, args []rt.Value) (rt.Value, error) {
		if err := arity("serialize/encode", args, 1); err != nil {
			return rt.Nil, err
		}
		var buf bytes.Buffer
		enc := serialize.NewEncoder(&buf, reg, t)
		if err := enc.Encode(args[0]); err != nil {
			return rt.Nil, cedarerr.Wrap(err, cedarerr.KindSerialization, "serialize/encode")
		}
		return rt.Obj(rt.NewStr(reg, buf.String())), nil
	})
	def(reg, t, mod, "serialize/decode", func(reg *rt.Registry, d rt.Dispatcher, fiber *rt.Fiber, args []rt.Value) (rt.Value, error) {
		if err := arity("serialize/decode", args, 1); err != nil {
			return rt.Nil, err
		}
		s, err := wantStr("serialize/decode", args[0])
		if err != nil {
			return rt.Nil, err
		}
		dec := serialize.NewDecoder(bytes.NewReader([]byte(s.S)), reg, t)
		v, derr := dec.Decode()
		if derr != nil {
			return rt.Nil, cedarerr.Wrap(derr, cedarerr.KindSerialization, "serialize/decode")
		}
		return v, nil
	})

	def(reg, t, mod, "serialize/checksum", func(reg *rt.Registry, d rt.Dispatcher, fiber *rt.Fiber, args []rt.Value) (rt.Value, error) {
		if err := arity("serialize/checksum", args, 1); err != nil {
			return rt.Nil, err
		}
		var buf bytes.Buffer
		enc := serialize.NewEncoder(&buf, reg, t)
		if err := enc.Encode(args[0]); err != nil {
			return rt.Nil, cedarerr.Wrap(err, cedarerr.KindSerialization, "serialize/checksum")
		}
		sum := blake2b.Sum256(buf.Bytes())
		return rt.Obj(rt.NewStr(reg, hex.EncodeToString(sum[:]))), nil
	})
	def(reg, t, mod, "serialize/save-db", func(reg *rt.Registry, d rt.Dispatcher, fiber *rt.Fiber, args []rt.Value) (rt.Value, error) {
		if err := arity("serialize/save-db", args, 3); err != nil {
			return rt.Nil, err
		}
		path, err := wantStr("serialize/save-db", args[0])
		if err != nil {
			return rt.Nil, err
		}
		key, err := wantStr("serialize/save-db", args[1])
		if err != nil {
			return rt.Nil, err
		}
		db, serr := sql.Open("sqlite3", path.S)
		if serr != nil {
			return rt.Nil, cedarerr.Wrap(serr, cedarerr.KindSerialization, "serialize/save-db: open")
		}
		defer db.Close()
		if _, serr = db.Exec(`CREATE TABLE IF NOT EXISTS cedar_store (k TEXT PRIMARY KEY, v BLOB)`); serr != nil {
			return rt.Nil, cedarerr.Wrap(serr, cedarerr.KindSerialization, "serialize/save-db: schema")
		}
		var buf bytes.Buffer
		enc := serialize.NewEncoder(&buf, reg, t)
		if eerr := enc.Encode(args[2]); eerr != nil {
			return rt.Nil, cedarerr.Wrap(eerr, cedarerr.KindSerialization, "serialize/save-db: encode")
		}
		if _, serr = db.Exec(`INSERT INTO cedar_store (k, v) VALUES (?, ?) ON CONFLICT(k) DO UPDATE SET v=excluded.v`, key.S, buf.Bytes()); serr != nil {
			return rt.Nil, cedarerr.Wrap(serr, cedarerr.KindSerialization, "serialize/save-db: insert")
		}
		return rt.Nil, nil
	})
	def(reg, t, mod, "serialize/load-db", func(reg *rt.Registry, d rt.Dispatcher, fiber *rt.Fiber, args []rt.Value) (rt.Value, error) {
		if err := arity("serialize/load-db", args, 2); err != nil {
			return rt.Nil, err
		}
		path, err := wantStr("serialize/load-db", args[0])
		if err != nil {
			return rt.Nil, err
		}
		key, err := wantStr("serialize/load-db", args[1])
		if err != nil {
			return rt.Nil, err
		}
		db, serr := sql.Open("sqlite3", path.S)
		if serr != nil {
			return rt.Nil, cedarerr.Wrap(serr, cedarerr.KindSerialization, "serialize/load-db: open")
		}
		defer db.Close()
		var blob []byte
		row := db.QueryRow(`SELECT v FROM cedar_store WHERE k = ?`, key.S)
		if serr = row.Scan(&blob); serr != nil {
			if serr == sql.ErrNoRows {
				return rt.Nil, nil
			}
			return rt.Nil, cedarerr.Wrap(serr, cedarerr.KindSerialization, "serialize/load-db: query")
		}
		dec := serialize.NewDecoder(bytes.NewReader(blob), reg, t)
		v, derr := dec.Decode()
		if derr != nil {
			return rt.Nil, cedarerr.Wrap(derr, cedarerr.KindSerialization, "serialize/load-db: decode")
		}
		return v, nil
	})
}
