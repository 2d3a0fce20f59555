// Package bridge implements the coordinator that mediates between
// acme editor windows and one or more LSP servers: it tracks window
// and document lifecycle, dispatches user commands to LSP requests,
// merges hover/action responses, and renders a control-window
// dashboard (spec.md §3/§4).
package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/acmelink/acmelink/internal/logging"
	"github.com/acmelink/acmelink/lspclient"
	"github.com/acmelink/acmelink/p9"
	"github.com/acmelink/acmelink/plumb"
	"github.com/acmelink/acmelink/win"
)

// clientID identifies one in-flight request: which LSP client it was
// sent to and that client's own request id.
type clientID struct {
	client string
	id     int64
}

// pendingRequest is what a clientID resolves back to once its
// response arrives: the method that was called and the window URL it
// was called about.
type pendingRequest struct {
	method string
	url    string
}

// Server is the coordinator's full runtime state (spec.md §3's
// "Server"/"ServerWin"/"WindowHover" state machine).
type Server struct {
	ctx context.Context

	fsys *p9.Fsys
	ctl  *win.Win // the coordinator's own control window

	plumb *plumb.Client

	configs map[string]ClientConfig
	clients map[string]lspclient.Config
	lspClients map[string]*lspclient.Client

	capabilities map[string]serverCapabilities

	wins       map[int]*serverWin
	names      []nameID
	files      map[string]string
	openedURLs map[string]bool
	// addr maps a byte position in the rendered control-window body to
	// the window id of the row starting there, most recent row last;
	// runCmd walks it in reverse to resolve a click (spec.md §4.3).
	addr []posID

	body    string
	output  string
	focus   string
	progress map[string]Progress
	diags    map[string][]string

	requests map[clientID]pendingRequest
	autorun  map[clientID]bool

	currentHover *windowHover
}

// NewServer opens the coordinator's own control window ("acmelink"),
// spawns every configured LSP client and sends its initialize request
// (spec.md §4.3/§4.6's startup sequence).
func NewServer(ctx context.Context, fsys *p9.Fsys, configs map[string]ClientConfig) (*Server, error) {
	clientConfigs, err := ToClientConfigs(configs)
	if err != nil {
		return nil, err
	}

	ctl, err := win.New(fsys)
	if err != nil {
		return nil, fmt.Errorf("bridge: open control window: %w", err)
	}
	if err := ctl.Ctrl("name acmelink"); err != nil {
		ctl.Close()
		return nil, fmt.Errorf("bridge: name control window: %w", err)
	}

	plumbClient, err := plumb.NewClient()
	if err != nil {
		logging.Warning("bridge: plumber unavailable: %v", err)
	}

	s := &Server{
		ctx:          ctx,
		fsys:         fsys,
		ctl:          ctl,
		plumb:        plumbClient,
		configs:      configs,
		clients:      clientConfigs,
		lspClients:   map[string]*lspclient.Client{},
		capabilities: map[string]serverCapabilities{},
		wins:         map[int]*serverWin{},
		files:        map[string]string{},
		openedURLs:   map[string]bool{},
		progress:     map[string]Progress{},
		diags:        map[string][]string{},
		requests:     map[clientID]pendingRequest{},
		autorun:      map[clientID]bool{},
	}
	logging.SetCriticalSink(func(msg string) { s.output = msg })

	for name, cfg := range clientConfigs {
		client, err := lspclient.NewClient(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("bridge: spawn %s: %w", name, err)
		}
		s.lspClients[name] = client

		var folders []workspaceFolder
		for _, f := range cfg.WorkspaceFolders {
			folders = append(folders, workspaceFolder{URI: f, Name: f})
		}
		var rootURI *protocolDocumentURI
		if cfg.RootURI != "" {
			u := protocolDocumentURI(cfg.RootURI)
			rootURI = &u
		}
		id := client.Send(ctx, MethodInitialize, initializeParams{
			ClientInfo:       &clientInfo{Name: "acmelink"},
			RootURI:          rootURI,
			WorkspaceFolders: folders,
			Capabilities:     lspclient.InitializeCapabilities(),
		}, new(json.RawMessage))
		s.requests[clientID{client: name, id: id}] = pendingRequest{method: MethodInitialize, url: "file:///"}
	}

	return s, nil
}

// sendRequest issues req to client and records it in s.requests so
// the matching response can be routed back to url.
func (s *Server) sendRequest(client, method, url string, params interface{}, result interface{}) (int64, error) {
	c, ok := s.lspClients[client]
	if !ok {
		return 0, fmt.Errorf("bridge: unknown client %q", client)
	}
	id := c.Send(s.ctx, method, params, result)
	s.requests[clientID{client: client, id: id}] = pendingRequest{method: method, url: url}
	return id, nil
}

func (s *Server) sendNotification(client, method string, params interface{}) error {
	c, ok := s.lspClients[client]
	if !ok {
		return fmt.Errorf("bridge: unknown client %q", client)
	}
	return c.Notify(s.ctx, method, params)
}

// winidByName finds a tracked window's id by its editor filename.
func (s *Server) winidByName(name string) (int, bool) {
	for _, n := range s.names {
		if n.name == name {
			return n.id, true
		}
	}
	return 0, false
}

func (s *Server) getSWByName(name string) (*serverWin, error) {
	id, ok := s.winidByName(name)
	if !ok {
		return nil, fmt.Errorf("bridge: could not find file %s", name)
	}
	sw, ok := s.wins[id]
	if !ok {
		return nil, fmt.Errorf("bridge: could not find window %d", id)
	}
	return sw, nil
}

func (s *Server) getSWByURL(url string) (*serverWin, error) {
	return s.getSWByName(strings.TrimPrefix(url, "file://"))
}

// didChange re-syncs windows (acme's log occasionally drops events)
// then sends a didChange notification for wid's current body.
func (s *Server) didChange(wid int) error {
	if err := s.syncWindows(); err != nil {
		return err
	}
	sw, ok := s.wins[wid]
	if !ok {
		return nil
	}
	version, text, err := sw.text()
	if err != nil {
		return err
	}
	return s.sendNotification(sw.client, MethodDidChange, didChangeParams{
		TextDocument:   versionedTextDocumentIdentifier{URI: sw.uri(), Version: version},
		ContentChanges: []textDocumentContentChangeEvent{{Text: text}},
	})
}

// Close deletes the control window and kills every LSP client,
// mirroring the original's Drop impl.
func (s *Server) Close() {
	_ = s.ctl.Del()
	s.ctl.Close()
	for _, c := range s.lspClients {
		_ = c.Close()
	}
	if s.plumb != nil {
		_ = s.plumb.Close()
	}
}

// Run opens the control window's log/event readers and drives the
// coordinator's main select loop until one of the editor streams
// closes or the context is cancelled (spec.md §3's wait loop).
func (s *Server) Run() error {
	if err := s.syncWindows(); err != nil {
		return err
	}

	logReader, logCloser, err := win.OpenLog(s.fsys)
	if err != nil {
		return fmt.Errorf("bridge: open log: %w", err)
	}
	defer logCloser.Close()

	evReader, err := s.ctl.Events()
	if err != nil {
		return fmt.Errorf("bridge: open control events: %w", err)
	}

	type logMsg struct {
		rec win.LogRecord
		err error
	}
	logCh := make(chan logMsg)
	go func() {
		for {
			rec, err := logReader.ReadRecord()
			logCh <- logMsg{rec: rec, err: err}
			if err != nil {
				return
			}
		}
	}()

	type evMsg struct {
		ev  win.Event
		err error
	}
	evCh := make(chan evMsg)
	go func() {
		for {
			ev, err := evReader.ReadEvent()
			if err != nil {
				evCh <- evMsg{err: err}
				return
			}
			switch ev.C2 {
			case 'x', 'X':
				switch ev.Text {
				case "Del":
					close(evCh)
					return
				case "Get":
					evCh <- evMsg{ev: ev}
				default:
					_ = s.ctl.WriteEvent(ev.C1, ev.C2, ev.Q0, ev.Q1)
				}
			case 'L':
				evCh <- evMsg{ev: ev}
			}
		}
	}()

	syncCh := make(chan struct{}, 1)
	requestSync := func() {
		select {
		case syncCh <- struct{}{}:
		default:
		}
	}
	requestSync()

	for {
		noSync := false

		cases := []reflect.SelectCase{
			{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(logCh)},
			{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(evCh)},
			{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(syncCh)},
			{Dir: reflect.SelectRecv, Chan: reflect.ValueOf(s.ctx.Done())},
		}
		names := make([]string, 0, len(s.lspClients))
		for name := range s.lspClients {
			names = append(names, name)
		}
		for _, name := range names {
			cases = append(cases, reflect.SelectCase{
				Dir:  reflect.SelectRecv,
				Chan: reflect.ValueOf(s.lspClients[name].Messages()),
			})
		}

		chosen, value, ok := reflect.Select(cases)
		switch chosen {
		case 0:
			if !ok {
				return fmt.Errorf("bridge: log stream closed")
			}
			m := value.Interface().(logMsg)
			if m.err != nil {
				return fmt.Errorf("bridge: read log: %w", m.err)
			}
			switch m.rec.Op {
			case win.OpFocus:
				if err := s.setFocus(m.rec.Name); err != nil {
					logging.Warning("bridge: focus %s: %v", m.rec.Name, err)
				}
			case win.OpPut:
				if err := s.cmdPut(m.rec.ID); err != nil {
					logging.Warning("bridge: put %d: %v", m.rec.ID, err)
				}
				noSync = true
			case win.OpNew, win.OpDel:
				if err := s.syncWindows(); err != nil {
					return err
				}
			}
		case 1:
			if !ok {
				// The event goroutine closes evCh when the control
				// window is deleted.
				return nil
			}
			m := value.Interface().(evMsg)
			if m.err != nil {
				return fmt.Errorf("bridge: read event: %w", m.err)
			}
			if err := s.runCmd(m.ev); err != nil {
				logging.Warning("bridge: run event: %v", err)
			}
		case 2:
			noSync = true
			if err := s.render(); err != nil {
				return err
			}
		case 3:
			return s.ctx.Err()
		default:
			name := names[chosen-4]
			if !ok {
				delete(s.lspClients, name)
				continue
			}
			msg := value.Interface().(lspclient.Message)
			if err := s.lspMsg(name, msg); err != nil {
				logging.Warning("bridge: lsp message from %s: %v", name, err)
			}
		}

		if !noSync {
			requestSync()
		}
	}
}
