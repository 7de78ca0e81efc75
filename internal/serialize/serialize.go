// Package serialize implements the persisted-value stream of §6: a
// compact tag-prefixed encoding for cons cells, vectors, dicts, strings,
// symbols, keywords, numbers, and bytecode lambdas. It knows about
// rt.Value and bytecode.Chunk directly (unlike bytecode, which stays
// ignorant of rt to avoid an import cycle) since a codec has to reach
// into both representations to walk a value graph.
package serialize

import (
	"bufio"
	"encoding/binary"
	"io"
	"math"

	"github.com/cedar-lang/cedar/internal/bytecode"
	"github.com/cedar-lang/cedar/internal/cedarerr"
	"github.com/cedar-lang/cedar/internal/intern"
	"github.com/cedar-lang/cedar/internal/rt"
)

const (
	tagInt     = 'i'
	tagFloat   = 'f'
	tagNil     = 'n'
	tagStr     = 's'
	tagSymbol  = 'r'
	tagKeyword = 'k'
	tagCons    = 'c'
	tagVector  = 'v'
	tagDict    = 'd'
	tagLambda  = 'l'
)

// Encoder writes values to an underlying stream in the §6 wire format.
type Encoder struct {
	w  *bufio.Writer
	t  *intern.Table
	rg *rt.Registry
}

func NewEncoder(w io.Writer, reg *rt.Registry, interner *intern.Table) *Encoder {
	return &Encoder{w: bufio.NewWriter(w), t: interner, rg: reg}
}

// Encode writes v and flushes the underlying buffer.
func (e *Encoder) Encode(v rt.Value) error {
	if err := e.put(v); err != nil {
		return err
	}
	return e.w.Flush()
}

func (e *Encoder) putTag(b byte) error { return e.w.WriteByte(b) }

func (e *Encoder) putU32(n uint32) error {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], n)
	_, err := e.w.Write(buf[:])
	return err
}

func (e *Encoder) putI64(n int64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(n))
	_, err := e.w.Write(buf[:])
	return err
}

func (e *Encoder) putF64(f float64) error {
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], mathFloatBits(f))
	_, err := e.w.Write(buf[:])
	return err
}

func (e *Encoder) putStrBody(s string) error {
	if err := e.putU32(uint32(len(s))); err != nil {
		return err
	}
	_, err := e.w.WriteString(s)
	return err
}

func (e *Encoder) put(v rt.Value) error {
	switch {
	case v.IsNil():
		return e.putTag(tagNil)
	case v.IsInt():
		if err := e.putTag(tagInt); err != nil {
			return err
		}
		n, _ := v.AsInt()
		return e.putI64(n)
	case v.IsFloat():
		if err := e.putTag(tagFloat); err != nil {
			return err
		}
		f, _ := v.AsFloat()
		return e.putF64(f)
	}
	switch obj := v.Object().(type) {
	case *rt.Str:
		if err := e.putTag(tagStr); err != nil {
			return err
		}
		return e.putStrBody(obj.S)
	case *rt.Symbol:
		if err := e.putTag(tagSymbol); err != nil {
			return err
		}
		return e.putStrBody(obj.Name(e.t))
	case *rt.Keyword:
		if err := e.putTag(tagKeyword); err != nil {
			return err
		}
		return e.putStrBody(obj.Name(e.t))
	case *rt.Cons:
		if err := e.putTag(tagCons); err != nil {
			return err
		}
		if err := e.put(obj.Car); err != nil {
			return err
		}
		return e.put(obj.Cdr)
	case *rt.Vector:
		if err := e.putTag(tagVector); err != nil {
			return err
		}
		n := obj.Len()
		if err := e.putU32(uint32(n)); err != nil {
			return err
		}
		for i := 0; i < n; i++ {
			if err := e.put(obj.Get(i)); err != nil {
				return err
			}
		}
		return nil
	case *rt.Dict:
		if err := e.putTag(tagDict); err != nil {
			return err
		}
		keys := obj.Keys()
		if err := e.putU32(uint32(len(keys))); err != nil {
			return err
		}
		for _, k := range keys {
			val, ok, err := obj.Get(e.rg, nil, k)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			if err := e.put(k); err != nil {
				return err
			}
			if err := e.put(val); err != nil {
				return err
			}
		}
		return nil
	case *rt.Lambda:
		return e.putLambda(obj)
	}
	return cedarerr.New(cedarerr.KindSerialization, "cannot encode a value of type %s", rt.TypeOf(e.rg, v).Name())
}

func (e *Encoder) putLambda(l *rt.Lambda) error {
	if l.IsNative() {
		return cedarerr.New(cedarerr.KindSerialization, "cannot encode a native lambda (%s)", l.Name)
	}
	chunk, ok := l.Code.(*bytecode.Chunk)
	if !ok {
		return cedarerr.New(cedarerr.KindSerialization, "lambda %s has no bytecode chunk", l.Name)
	}
	if err := e.putTag(tagLambda); err != nil {
		return err
	}
	if err := e.putStrBody(l.Name); err != nil {
		return err
	}
	defBinding := int32(-1)
	if l.Module != nil {
		defBinding = 1
	}
	if err := binary.Write(e.w, binary.LittleEndian, defBinding); err != nil {
		return err
	}
	if err := binary.Write(e.w, binary.LittleEndian, int32(l.VarargSlot)); err != nil {
		return err
	}
	if err := binary.Write(e.w, binary.LittleEndian, int32(l.ArgCount)); err != nil {
		return err
	}
	varargByte := byte(0)
	if l.Varargs {
		varargByte = 1
	}
	if err := e.putTag(varargByte); err != nil {
		return err
	}
	if err := e.putU32(uint32(len(chunk.Constants))); err != nil {
		return err
	}
	for _, c := range chunk.Constants {
		cv, ok := c.(rt.Value)
		if !ok {
			return cedarerr.New(cedarerr.KindSerialization, "lambda %s has a non-rt.Value constant", l.Name)
		}
		if err := e.put(cv); err != nil {
			return err
		}
	}
	if err := e.putU32(uint32(len(chunk.Code))); err != nil {
		return err
	}
	if err := binary.Write(e.w, binary.LittleEndian, int32(chunk.StackSize)); err != nil {
		return err
	}
	_, err := e.w.Write(chunk.Code)
	return err
}

// Decoder reads values back out of the §6 wire format.
type Decoder struct {
	r  *bufio.Reader
	t  *intern.Table
	rg *rt.Registry
}

func NewDecoder(r io.Reader, reg *rt.Registry, interner *intern.Table) *Decoder {
	return &Decoder{r: bufio.NewReader(r), t: interner, rg: reg}
}

// Decode reads one encoded value.
func (d *Decoder) Decode() (rt.Value, error) {
	return d.get()
}

func (d *Decoder) getU32() (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(d.r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func (d *Decoder) getI64() (int64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(d.r, buf[:]); err != nil {
		return 0, err
	}
	return int64(binary.LittleEndian.Uint64(buf[:])), nil
}

func (d *Decoder) getF64() (float64, error) {
	var buf [8]byte
	if _, err := io.ReadFull(d.r, buf[:]); err != nil {
		return 0, err
	}
	return mathFloatFromBits(binary.LittleEndian.Uint64(buf[:])), nil
}

func (d *Decoder) getStrBody() (string, error) {
	n, err := d.getU32()
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(d.r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func (d *Decoder) get() (rt.Value, error) {
	tag, err := d.r.ReadByte()
	if err != nil {
		return rt.Nil, err
	}
	switch tag {
	case tagNil:
		return rt.Nil, nil
	case tagInt:
		n, err := d.getI64()
		if err != nil {
			return rt.Nil, err
		}
		return rt.Int(n), nil
	case tagFloat:
		f, err := d.getF64()
		if err != nil {
			return rt.Nil, err
		}
		return rt.Float(f), nil
	case tagStr:
		s, err := d.getStrBody()
		if err != nil {
			return rt.Nil, err
		}
		return rt.Obj(rt.NewStr(d.rg, s)), nil
	case tagSymbol:
		s, err := d.getStrBody()
		if err != nil {
			return rt.Nil, err
		}
		return rt.Obj(rt.NewSymbol(d.rg, d.t.Intern(s))), nil
	case tagKeyword:
		s, err := d.getStrBody()
		if err != nil {
			return rt.Nil, err
		}
		return rt.Obj(rt.NewKeyword(d.rg, d.t.Intern(s))), nil
	case tagCons:
		car, err := d.get()
		if err != nil {
			return rt.Nil, err
		}
		cdr, err := d.get()
		if err != nil {
			return rt.Nil, err
		}
		return rt.MakeCons(d.rg, car, cdr), nil
	case tagVector:
		n, err := d.getU32()
		if err != nil {
			return rt.Nil, err
		}
		items := make([]rt.Value, n)
		for i := range items {
			items[i], err = d.get()
			if err != nil {
				return rt.Nil, err
			}
		}
		return rt.Obj(rt.NewVector(d.rg, items...)), nil
	case tagDict:
		n, err := d.getU32()
		if err != nil {
			return rt.Nil, err
		}
		dd := rt.NewDict()
		dd.Type = d.rg.DictType
		for i := uint32(0); i < n; i++ {
			k, err := d.get()
			if err != nil {
				return rt.Nil, err
			}
			v, err := d.get()
			if err != nil {
				return rt.Nil, err
			}
			if err := dd.Set(d.rg, nil, k, v); err != nil {
				return rt.Nil, err
			}
		}
		return rt.Obj(dd), nil
	case tagLambda:
		return d.getLambda()
	}
	return rt.Nil, cedarerr.New(cedarerr.KindSerialization, "unknown stream tag %q", tag)
}

func (d *Decoder) getLambda() (rt.Value, error) {
	name, err := d.getStrBody()
	if err != nil {
		return rt.Nil, err
	}
	var defBinding, varargSlot, argCount int32
	for _, dst := range []*int32{&defBinding, &varargSlot, &argCount} {
		if err := binary.Read(d.r, binary.LittleEndian, dst); err != nil {
			return rt.Nil, err
		}
	}
	varargByte, err := d.r.ReadByte()
	if err != nil {
		return rt.Nil, err
	}
	constCount, err := d.getU32()
	if err != nil {
		return rt.Nil, err
	}
	chunk := bytecode.NewChunk()
	for i := uint32(0); i < constCount; i++ {
		c, err := d.get()
		if err != nil {
			return rt.Nil, err
		}
		chunk.AddConstant(c)
	}
	codeLen, err := d.getU32()
	if err != nil {
		return rt.Nil, err
	}
	var stackSize int32
	if err := binary.Read(d.r, binary.LittleEndian, &stackSize); err != nil {
		return rt.Nil, err
	}
	chunk.StackSize = int(stackSize)
	chunk.Code = make([]byte, codeLen)
	if _, err := io.ReadFull(d.r, chunk.Code); err != nil {
		return rt.Nil, err
	}
	lam := rt.NewBytecodeLambda(d.rg, name, chunk, int(argCount), varargByte != 0, chunk.StackSize, nil)
	lam.VarargSlot = int(varargSlot)
	return rt.Obj(lam), nil
}

func mathFloatBits(f float64) uint64     { return math.Float64bits(f) }
func mathFloatFromBits(b uint64) float64 { return math.Float64frombits(b) }
