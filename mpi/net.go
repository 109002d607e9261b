package mpi

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/rpc"
	"sync"
	"time"
)

// DeliverMethod is the rpc method every rank serves for incoming messages.
var DeliverMethod = "Peer.Deliver"

// Delivery is one message sent over rpc.
type Delivery struct {
	Src  int
	Tag  int
	Data []uint8
}

// Ack is the reply to a Delivery.
type Ack struct {
	OK bool
}

// Peer is the rpc service that queues incoming messages for a rank.
type Peer struct {
	box *mailbox
}

// Deliver queues the message, blocking while that queue is full.
func (p *Peer) Deliver(req Delivery, res *Ack) error {
	if err := p.box.deliver(req.Src, req.Tag, req.Data); err != nil {
		return err
	}
	res.OK = true
	return nil
}

// NetConfig describes one rank of a TCP world.
type NetConfig struct {
	// Rank of this process.
	Rank int

	// Peers holds the listen address of every rank, indexed by rank.
	Peers []string

	// Listener is used instead of listening on Peers[Rank] when set.
	Listener net.Listener

	// DialTimeout bounds how long to keep retrying a peer that is not
	// listening yet.
	DialTimeout time.Duration
}

// DefaultDialTimeout is used when NetConfig.DialTimeout is zero.
const DefaultDialTimeout = 30 * time.Second

type netComm struct {
	cfg    NetConfig
	box    *mailbox
	abort  *abortSignal
	ln     net.Listener
	dialMu []sync.Mutex
	peers  []*rpc.Client
	wg     sync.WaitGroup
}

// Dial starts serving this rank's mailbox and returns its communicator.
// Connections to peers are made lazily on first send.
func Dial(cfg NetConfig) (Comm, error) {
	if len(cfg.Peers) == 0 {
		return nil, errors.New("mpi: no peers configured")
	}
	if err := checkRank(cfg.Rank, len(cfg.Peers)); err != nil {
		return nil, err
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = DefaultDialTimeout
	}
	abort := newAbortSignal()
	c := &netComm{
		cfg:    cfg,
		box:    newMailbox(abort),
		abort:  abort,
		dialMu: make([]sync.Mutex, len(cfg.Peers)),
		peers:  make([]*rpc.Client, len(cfg.Peers)),
	}

	server := rpc.NewServer()
	if err := server.RegisterName("Peer", &Peer{box: c.box}); err != nil {
		return nil, fmt.Errorf("mpi: register peer: %w", err)
	}
	c.ln = cfg.Listener
	if c.ln == nil {
		ln, err := net.Listen("tcp", cfg.Peers[cfg.Rank])
		if err != nil {
			return nil, fmt.Errorf("mpi: listen on %s: %w", cfg.Peers[cfg.Rank], err)
		}
		c.ln = ln
	}
	slog.Debug("rank listening", "rank", cfg.Rank, "addr", c.ln.Addr().String())

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			conn, err := c.ln.Accept()
			if err != nil {
				if !errors.Is(err, net.ErrClosed) {
					slog.Warn("accept failed", "rank", cfg.Rank, "err", err)
				}
				return
			}
			go server.ServeConn(conn)
		}
	}()
	return c, nil
}

func (c *netComm) Rank() int { return c.cfg.Rank }

func (c *netComm) Size() int { return len(c.cfg.Peers) }

// client returns the connection to dest, dialling until the peer listens
// or the timeout passes.
func (c *netComm) client(dest int) (*rpc.Client, error) {
	c.dialMu[dest].Lock()
	defer c.dialMu[dest].Unlock()
	if c.peers[dest] != nil {
		return c.peers[dest], nil
	}
	addr := c.cfg.Peers[dest]
	deadline := time.Now().Add(c.cfg.DialTimeout)
	for {
		cli, err := rpc.Dial("tcp", addr)
		if err == nil {
			c.peers[dest] = cli
			return cli, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("mpi: dial rank %d at %s: %w", dest, addr, err)
		}
		select {
		case <-time.After(50 * time.Millisecond):
		case <-c.abort.ch:
			return nil, c.abort.err
		}
	}
}

// Isend delivers over rpc from its own goroutine. Two sends with the same
// destination and tag are only ordered if the first is waited on before the
// second starts. A failed delivery aborts this rank, so its pending receives
// fail with the cause instead of waiting on a dead peer.
func (c *netComm) Isend(dest, tag int, data []uint8) Request {
	if err := checkRank(dest, c.Size()); err != nil {
		return completed(err)
	}
	if dest == c.cfg.Rank {
		return c.box.post(c.cfg.Rank, tag, data)
	}
	msg := Delivery{Src: c.cfg.Rank, Tag: tag, Data: make([]uint8, len(data))}
	copy(msg.Data, data)
	r := newRequest()
	go func() {
		cli, err := c.client(dest)
		if err != nil {
			c.fail(r, err)
			return
		}
		call := cli.Go(DeliverMethod, msg, &Ack{}, nil)
		select {
		case <-call.Done:
			if call.Error != nil {
				c.fail(r, fmt.Errorf("mpi: deliver to rank %d tag %d: %w", dest, tag, call.Error))
				return
			}
			r.complete(nil)
		case <-c.abort.ch:
			r.complete(c.abort.err)
		}
	}()
	return r
}

// fail completes r with err and aborts the rank.
func (c *netComm) fail(r *request, err error) {
	c.abort.abort(err)
	r.complete(err)
}

func (c *netComm) Irecv(src, tag int, buf []uint8) Request {
	if err := checkRank(src, c.Size()); err != nil {
		return completed(err)
	}
	return c.box.receive(src, tag, buf)
}

func (c *netComm) Send(dest, tag int, data []uint8) error {
	return c.Isend(dest, tag, data).Wait()
}

func (c *netComm) Recv(src, tag int, buf []uint8) error {
	return c.Irecv(src, tag, buf).Wait()
}

func (c *netComm) AllReduce(op Op, v int) (int, error) {
	return allReduce(c, op, v)
}

// Abort fails the requests of this rank only. Peers are not told; a peer
// aborts when its next send to this rank fails.
func (c *netComm) Abort(err error) {
	c.abort.abort(err)
}

func (c *netComm) Finalize() error {
	err := c.ln.Close()
	c.wg.Wait()
	for i := range c.peers {
		c.dialMu[i].Lock()
		if c.peers[i] != nil {
			err = errors.Join(err, c.peers[i].Close())
			c.peers[i] = nil
		}
		c.dialMu[i].Unlock()
	}
	return err
}
