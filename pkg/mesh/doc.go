// Package mesh maps sealed frames onto addressed mesh packets.
//
// CreateBroadcast packs records with a frame index header, seals each frame
// with nonce = seed + index and wraps the sealed bytes into one Packet per
// frame. DecodeBroadcast is the inverse for a single packet payload; it
// performs no aggregation across packets.
//
// Reassembling a multi-frame message is left to the Reassembler, which is
// fed decoded frames and owns the timeout and eviction policy for
// incomplete messages.
//
// MarshalPacket and UnmarshalPacket carry packets across gateways that
// bridge the radio mesh to IP. The envelope is CBOR with integer keys; the
// sealed frame inside it is unchanged.
package mesh
