// Package broadcast provides tabsync.Channel implementations.
//
// MemoryBus is the in-process transport. Endpoints opened on the same bus
// under the same name see each other's posts, never their own. Posts are
// queued until Deliver or DeliverAll is called, which makes message
// arrival an explicit step in tests. WithAutoDeliver hands messages over
// inside Post instead.
//
// Hub and Dial carry the same semantics across processes over a Unix
// domain socket. Every frame is a 4-byte big-endian length followed by a
// flag byte and a CBOR body (see package codec); bodies above
// codec.CompressThreshold are zstd-compressed. A connection opens with a
// hello frame naming its channel and waits for the hub's acknowledgement,
// so a Dial that returned is guaranteed to receive every later post. The
// hub forwards raw frames without decoding them.
package broadcast
