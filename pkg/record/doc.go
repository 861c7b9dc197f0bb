// Package record implements the compact 13-byte building record.
//
// A Record is the smallest unit carried over the radio link: one building
// element or sensor datum with millimeter coordinates and four opaque
// property bytes.
//
// # Wire Layout
//
// All fields are little-endian and written in declaration order:
//
//	 0      2    3      5      7      9             13
//	┌──────┬────┬──────┬──────┬──────┬─────────────┐
//	│ bldg │kind│  x   │  y   │  z   │ properties  │
//	└──────┴────┴──────┴──────┴──────┴─────────────┘
//
// Every 13-byte pattern decodes to a valid Record, so decoding is a total
// function. Coordinates cover 0 to 65535 mm (about 65.5 m) per axis.
package record
