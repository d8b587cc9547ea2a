package testutil

// ForwarderWasm is a minimal guest module. It imports
//
//	(import "oc_host" "call" (func (param i32 i32 i64 i64) (result i64)))
//
// exports one page of memory as "memory", and exports "invoke", which has
// the same signature and forwards its arguments to the import unchanged.
var ForwarderWasm = []byte{
	0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00, // magic, version

	// type section: (i32 i32 i64 i64) -> i64
	0x01, 0x09, 0x01, 0x60, 0x04, 0x7f, 0x7f, 0x7e, 0x7e, 0x01, 0x7e,

	// import section: oc_host.call, type 0
	0x02, 0x10, 0x01,
	0x07, 'o', 'c', '_', 'h', 'o', 's', 't',
	0x04, 'c', 'a', 'l', 'l',
	0x00, 0x00,

	// function section: one function of type 0
	0x03, 0x02, 0x01, 0x00,

	// memory section: one memory, min 1 page
	0x05, 0x03, 0x01, 0x00, 0x01,

	// export section: memory 0, function 1
	0x07, 0x13, 0x02,
	0x06, 'm', 'e', 'm', 'o', 'r', 'y', 0x02, 0x00,
	0x06, 'i', 'n', 'v', 'o', 'k', 'e', 0x00, 0x01,

	// code section: local.get 0..3, call 0, end
	0x0a, 0x0e, 0x01, 0x0c, 0x00,
	0x20, 0x00, 0x20, 0x01, 0x20, 0x02, 0x20, 0x03,
	0x10, 0x00,
	0x0b,
}

// Guest memory offsets used with ForwarderWasm.
const (
	ForwarderInOffset  = 1024
	ForwarderOutOffset = 8192
)
