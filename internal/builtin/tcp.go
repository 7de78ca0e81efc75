package builtin

import (
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/cedar-lang/cedar/internal/cedarerr"
	"github.com/cedar-lang/cedar/internal/intern"
	"github.com/cedar-lang/cedar/internal/rt"
)

// tcpConn is the instance shape the `tcp` module's Connection type
// allocates: a websocket connection standing in for a raw TCP socket, the
// same tradeoff the original's tcp binding makes for its embedded target
// (framed read/write over a socket rather than bare byte streams, which
// buys a ready-made length-prefixed message boundary for free).
type tcpConn struct {
	rt.ObjHeader
	ws *websocket.Conn
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// registerTCP installs the `tcp` module: a listener/dial pair backed by
// gorilla/websocket, exercising the one networking dependency in the
// domain stack that has no other component to call it (§2 of
// SPEC_FULL.md).
func registerTCP(reg *rt.Registry, t *intern.Table, mod *rt.Module) {
	connType := reg.NewUserType("tcp/Connection")
	reg.RegisterUserType(connType)

	def(reg, t, mod, "tcp/dial", func(reg *rt.Registry, d rt.Dispatcher, fiber *rt.Fiber, args []rt.Value) (rt.Value, error) {
		if err := arity("tcp/dial", args, 1); err != nil {
			return rt.Nil, err
		}
		addr, err := wantStr("tcp/dial", args[0])
		if err != nil {
			return rt.Nil, err
		}
		u := url.URL{Scheme: "ws", Host: addr.S, Path: "/"}
		ws, _, derr := websocket.DefaultDialer.Dial(u.String(), nil)
		if derr != nil {
			return rt.Nil, cedarerr.Wrap(derr, cedarerr.KindRuntime, "tcp/dial: %s", addr.S)
		}
		conn := &tcpConn{ws: ws}
		conn.Type = connType
		return rt.Obj(conn), nil
	})
	def(reg, t, mod, "tcp/send", func(reg *rt.Registry, d rt.Dispatcher, fiber *rt.Fiber, args []rt.Value) (rt.Value, error) {
		if err := arity("tcp/send", args, 2); err != nil {
			return rt.Nil, err
		}
		conn, ok := args[0].Object().(*tcpConn)
		if !ok {
			return rt.Nil, cedarerr.New(cedarerr.KindType, "tcp/send expects a tcp connection")
		}
		s, err := wantStr("tcp/send", args[1])
		if err != nil {
			return rt.Nil, err
		}
		if werr := conn.ws.WriteMessage(websocket.TextMessage, []byte(s.S)); werr != nil {
			return rt.Nil, cedarerr.Wrap(werr, cedarerr.KindRuntime, "tcp/send")
		}
		return rt.Nil, nil
	})
	def(reg, t, mod, "tcp/recv", func(reg *rt.Registry, d rt.Dispatcher, fiber *rt.Fiber, args []rt.Value) (rt.Value, error) {
		if err := arityRange("tcp/recv", args, 1, 2); err != nil {
			return rt.Nil, err
		}
		conn, ok := args[0].Object().(*tcpConn)
		if !ok {
			return rt.Nil, cedarerr.New(cedarerr.KindType, "tcp/recv expects a tcp connection")
		}
		if len(args) == 2 {
			ms, ierr := wantInt("tcp/recv", args[1])
			if ierr != nil {
				return rt.Nil, ierr
			}
			conn.ws.SetReadDeadline(time.Now().Add(time.Duration(ms) * time.Millisecond))
		}
		_, data, rerr := conn.ws.ReadMessage()
		if rerr != nil {
			return rt.Nil, cedarerr.Wrap(rerr, cedarerr.KindRuntime, "tcp/recv")
		}
		return rt.Obj(rt.NewStr(reg, string(data))), nil
	})
	def(reg, t, mod, "tcp/close", func(reg *rt.Registry, d rt.Dispatcher, fiber *rt.Fiber, args []rt.Value) (rt.Value, error) {
		if err := arity("tcp/close", args, 1); err != nil {
			return rt.Nil, err
		}
		conn, ok := args[0].Object().(*tcpConn)
		if !ok {
			return rt.Nil, cedarerr.New(cedarerr.KindType, "tcp/close expects a tcp connection")
		}
		return rt.Nil, conn.ws.Close()
	})
	def(reg, t, mod, "tcp/listen", func(reg *rt.Registry, d rt.Dispatcher, fiber *rt.Fiber, args []rt.Value) (rt.Value, error) {
		if err := arity("tcp/listen", args, 2); err != nil {
			return rt.Nil, err
		}
		addr, err := wantStr("tcp/listen", args[0])
		if err != nil {
			return rt.Nil, err
		}
		handler, ok := args[1].Object().(*rt.Lambda)
		if !ok {
			return rt.Nil, cedarerr.New(cedarerr.KindType, "tcp/listen expects a lambda handler")
		}
		apply, ok := d.(applier)
		if !ok {
			return rt.Nil, cedarerr.New(cedarerr.KindRuntime, "tcp/listen: no applier installed")
		}
		mux := http.NewServeMux()
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			ws, uerr := upgrader.Upgrade(w, r, nil)
			if uerr != nil {
				return
			}
			conn := &tcpConn{ws: ws}
			conn.Type = connType
			apply.Apply(handler, []rt.Value{rt.Obj(conn)})
		})
		server := &http.Server{Addr: addr.S, Handler: mux}
		go server.ListenAndServe()
		return rt.Nil, nil
	})
}

// applier is satisfied by *vm.VM: tcp/listen's per-connection handler runs
// synchronously on the accepting goroutine via Apply, the same re-entrant
// "call this lambda and get its value" path macro expansion uses.
type applier interface {
	Apply(lam *rt.Lambda, args []rt.Value) (rt.Value, error)
}
