package p9

import (
	"net"
	"os"
	"regexp"
)

// dotZero matches a DISPLAY value ending in ".0" after a ":N" suffix,
// e.g. "myhost:10.0", so it can be canonicalized to "myhost:10".
var dotZero = regexp.MustCompile(`\A(.*:\d+)\.0\z`)

// Namespace returns the path to the per-user namespace directory:
// $NAMESPACE if set, otherwise /tmp/ns.<USER>.<DISPLAY> with DISPLAY
// defaulting to ":0.0" and a trailing ".0" stripped after a ":N" port.
func Namespace() string {
	if ns, ok := os.LookupEnv("NAMESPACE"); ok {
		return ns
	}
	disp, ok := os.LookupEnv("DISPLAY")
	if !ok {
		disp = ":0.0"
	}
	if m := dotZero.FindStringSubmatch(disp); m != nil {
		disp = m[1]
	}
	return "/tmp/ns." + os.Getenv("USER") + "." + disp
}

// Dial connects to a 9P service listening on a unix-domain socket at
// addr and performs the version handshake.
func Dial(addr string) (*Conn, error) {
	stream, err := net.Dial("unix", addr)
	if err != nil {
		return nil, err
	}
	conn, err := NewConn(stream)
	if err != nil {
		_ = stream.Close()
		return nil, err
	}
	return conn, nil
}

// DialService dials the named service's socket under the namespace
// directory.
func DialService(service string) (*Conn, error) {
	return Dial(Namespace() + "/" + service)
}

// MountService dials the named service and attaches as the current
// user with an empty aname, returning a ready-to-use Fsys.
func MountService(service string) (*Fsys, error) {
	conn, err := DialService(service)
	if err != nil {
		return nil, err
	}
	return Attach(conn, CurrentUser(), "")
}
