package bytecode

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"

	"flowlang/internal/errs"
	"flowlang/internal/value"
)

// Binary chunk format. All multi-byte fields are little-endian.
//
//	u32 magic "FLOW"
//	u16 version major, u16 version minor
//	u32 constant count, u32 instruction count, u32 entry point
//	constants: 1-byte tag + payload
//	instructions: 1-byte opcode [+ u16 operand] [+ u32 len + name]
//
// BigInteger, Array and Object constants have no binary form and fail
// to serialize.

const (
	Magic        = 0x464C4F57
	VersionMajor = 1
	VersionMinor = 0
)

const (
	tagInteger  = 0x01
	tagFloat    = 0x02
	tagString   = 0x03
	tagBoolean  = 0x04
	tagNull     = 0x05
	tagFunction = 0x06
)

// Write serializes the chunk.
func (c *Chunk) Write(w io.Writer) error {
	var buf bytes.Buffer
	if err := c.writeBody(&buf); err != nil {
		return err
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func (c *Chunk) writeBody(buf *bytes.Buffer) error {
	writeU32 := func(v uint32) { binary.Write(buf, binary.LittleEndian, v) }
	writeU16 := func(v uint16) { binary.Write(buf, binary.LittleEndian, v) }

	writeU32(Magic)
	writeU16(VersionMajor)
	writeU16(VersionMinor)
	writeU32(uint32(len(c.Constants)))
	writeU32(uint32(len(c.Instructions)))
	writeU32(0) // entry point

	for _, cst := range c.Constants {
		if err := writeConstant(buf, cst); err != nil {
			return err
		}
	}
	for _, ins := range c.Instructions {
		if _, ok := opNames[ins.Op]; !ok {
			return errs.New(errs.InvalidBytecode, "cannot serialize opcode 0x%02X", byte(ins.Op))
		}
		buf.WriteByte(byte(ins.Op))
		if ins.Op.HasOperand() {
			if ins.Operand < 0 || ins.Operand > math.MaxUint16 {
				return errs.New(errs.InvalidBytecode, "operand %d out of range for %s", ins.Operand, ins.Op)
			}
			binary.Write(buf, binary.LittleEndian, uint16(ins.Operand))
		}
		if ins.Op.HasName() {
			writeString(buf, ins.Str)
		}
	}
	return nil
}

func writeString(buf *bytes.Buffer, s string) {
	binary.Write(buf, binary.LittleEndian, uint32(len(s)))
	buf.WriteString(s)
}

func writeConstant(buf *bytes.Buffer, cst value.Value) error {
	switch v := cst.(type) {
	case int64:
		buf.WriteByte(tagInteger)
		binary.Write(buf, binary.LittleEndian, v)
	case float64:
		buf.WriteByte(tagFloat)
		binary.Write(buf, binary.LittleEndian, math.Float64bits(v))
	case string:
		buf.WriteByte(tagString)
		writeString(buf, v)
	case bool:
		buf.WriteByte(tagBoolean)
		if v {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	case nil:
		buf.WriteByte(tagNull)
	case *Function:
		buf.WriteByte(tagFunction)
		writeString(buf, v.Name)
		binary.Write(buf, binary.LittleEndian, uint16(len(v.Params)))
		for _, p := range v.Params {
			writeString(buf, p.Name)
			var flags byte
			if p.HasDefault {
				flags |= 1
			}
			if p.Variadic {
				flags |= 2
			}
			buf.WriteByte(flags)
			if p.HasDefault {
				if err := writeConstant(buf, p.Default); err != nil {
					return err
				}
			}
		}
		binary.Write(buf, binary.LittleEndian, uint16(v.NumLocals))
		var body bytes.Buffer
		if err := v.Chunk.writeBody(&body); err != nil {
			return err
		}
		binary.Write(buf, binary.LittleEndian, uint32(body.Len()))
		buf.Write(body.Bytes())
	default:
		return errs.New(errs.InvalidBytecode, "constant of type %s is not serializable", value.TypeName(cst))
	}
	return nil
}

type reader struct {
	data []byte
	pos  int
}

func (r *reader) remaining() int { return len(r.data) - r.pos }

func (r *reader) byte() (byte, error) {
	if r.remaining() < 1 {
		return 0, errs.New(errs.InvalidBytecode, "unexpected end of chunk")
	}
	b := r.data[r.pos]
	r.pos++
	return b, nil
}

func (r *reader) u16() (uint16, error) {
	if r.remaining() < 2 {
		return 0, errs.New(errs.InvalidBytecode, "unexpected end of chunk")
	}
	v := binary.LittleEndian.Uint16(r.data[r.pos:])
	r.pos += 2
	return v, nil
}

func (r *reader) u32() (uint32, error) {
	if r.remaining() < 4 {
		return 0, errs.New(errs.InvalidBytecode, "unexpected end of chunk")
	}
	v := binary.LittleEndian.Uint32(r.data[r.pos:])
	r.pos += 4
	return v, nil
}

func (r *reader) str() (string, error) {
	n, err := r.u32()
	if err != nil {
		return "", err
	}
	if r.remaining() < int(n) {
		return "", errs.New(errs.InvalidBytecode, "string length %d exceeds chunk size", n)
	}
	s := string(r.data[r.pos : r.pos+int(n)])
	r.pos += int(n)
	return s, nil
}

// Read deserializes a chunk, validating the header, all tags and all
// jump targets.
func Read(src io.Reader) (*Chunk, error) {
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, errs.New(errs.InvalidBytecode, "reading chunk: %v", err)
	}
	r := &reader{data: data}
	c, err := readBody(r)
	if err != nil {
		return nil, err
	}
	if r.remaining() > 0 {
		return nil, errs.New(errs.InvalidBytecode, "%d trailing bytes after chunk", r.remaining())
	}
	return c, nil
}

func readBody(r *reader) (*Chunk, error) {
	magic, err := r.u32()
	if err != nil {
		return nil, err
	}
	if magic != Magic {
		return nil, errs.New(errs.InvalidBytecode, "bad magic 0x%08X", magic)
	}
	major, err := r.u16()
	if err != nil {
		return nil, err
	}
	minor, err := r.u16()
	if err != nil {
		return nil, err
	}
	if major != VersionMajor {
		return nil, errs.New(errs.InvalidBytecode, "unsupported version %d.%d", major, minor)
	}
	nConst, err := r.u32()
	if err != nil {
		return nil, err
	}
	nIns, err := r.u32()
	if err != nil {
		return nil, err
	}
	if _, err := r.u32(); err != nil { // entry point
		return nil, err
	}

	c := NewChunk()
	for i := uint32(0); i < nConst; i++ {
		cst, err := readConstant(r)
		if err != nil {
			return nil, err
		}
		c.Constants = append(c.Constants, cst)
	}
	for i := uint32(0); i < nIns; i++ {
		op, err := r.byte()
		if err != nil {
			return nil, err
		}
		ins := Instruction{Op: Opcode(op)}
		if _, known := opNames[ins.Op]; !known {
			return nil, errs.New(errs.InvalidBytecode, "unknown opcode 0x%02X at instruction %d", op, i)
		}
		if ins.Op.HasOperand() {
			operand, err := r.u16()
			if err != nil {
				return nil, err
			}
			ins.Operand = int(operand)
		}
		if ins.Op.HasName() {
			if ins.Str, err = r.str(); err != nil {
				return nil, err
			}
		}
		c.Instructions = append(c.Instructions, ins)
		c.Lines = append(c.Lines, 0)
	}
	return c, c.validate()
}

func readConstant(r *reader) (value.Value, error) {
	tag, err := r.byte()
	if err != nil {
		return nil, err
	}
	switch tag {
	case tagInteger:
		if r.remaining() < 8 {
			return nil, errs.New(errs.InvalidBytecode, "truncated integer constant")
		}
		v := int64(binary.LittleEndian.Uint64(r.data[r.pos:]))
		r.pos += 8
		return v, nil
	case tagFloat:
		if r.remaining() < 8 {
			return nil, errs.New(errs.InvalidBytecode, "truncated float constant")
		}
		v := math.Float64frombits(binary.LittleEndian.Uint64(r.data[r.pos:]))
		r.pos += 8
		return v, nil
	case tagString:
		return r.str()
	case tagBoolean:
		b, err := r.byte()
		if err != nil {
			return nil, err
		}
		return b != 0, nil
	case tagNull:
		return nil, nil
	case tagFunction:
		fn := &Function{}
		if fn.Name, err = r.str(); err != nil {
			return nil, err
		}
		nParams, err := r.u16()
		if err != nil {
			return nil, err
		}
		for i := uint16(0); i < nParams; i++ {
			var p Param
			if p.Name, err = r.str(); err != nil {
				return nil, err
			}
			flags, err := r.byte()
			if err != nil {
				return nil, err
			}
			p.HasDefault = flags&1 != 0
			p.Variadic = flags&2 != 0
			if p.HasDefault {
				if p.Default, err = readConstant(r); err != nil {
					return nil, err
				}
			}
			fn.Params = append(fn.Params, p)
		}
		numLocals, err := r.u16()
		if err != nil {
			return nil, err
		}
		fn.NumLocals = int(numLocals)
		bodyLen, err := r.u32()
		if err != nil {
			return nil, err
		}
		if r.remaining() < int(bodyLen) {
			return nil, errs.New(errs.InvalidBytecode, "truncated function body")
		}
		sub := &reader{data: r.data[r.pos : r.pos+int(bodyLen)]}
		r.pos += int(bodyLen)
		if fn.Chunk, err = readBody(sub); err != nil {
			return nil, err
		}
		if sub.remaining() > 0 {
			return nil, errs.New(errs.InvalidBytecode, "trailing bytes in function body")
		}
		return fn, nil
	default:
		return nil, errs.New(errs.InvalidBytecode, "unknown constant tag 0x%02X", tag)
	}
}

// validate checks that jump targets and constant references stay in
// bounds.
func (c *Chunk) validate() error {
	for i, ins := range c.Instructions {
		switch ins.Op {
		case Jump, JumpIfFalse, JumpIfTrue:
			if ins.Operand > len(c.Instructions) {
				return errs.New(errs.InvalidBytecode, "jump target %d out of range at instruction %d", ins.Operand, i)
			}
		case LoadConstant, NewFunction, NewClosure:
			if ins.Operand >= len(c.Constants) {
				return errs.New(errs.InvalidBytecode, "constant index %d out of range at instruction %d", ins.Operand, i)
			}
		}
	}
	return nil
}
