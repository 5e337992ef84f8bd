package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/golang-jwt/jwt"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/micrictor/fwrules/internal/token"
	"github.com/micrictor/fwrules/internal/wire"
)

// Matcher answers accept/deny queries.
type Matcher interface {
	Accept(direction, protocol string, port int, address string) bool
}

// Server answers query datagrams over UDP, one reply per request.
type Server struct {
	conn    *net.UDPConn
	matcher Matcher
	keyfunc jwt.Keyfunc
	// sessions is nil unless EnableSessions was called.
	sessions *token.Sessions
	log      logrus.FieldLogger
}

// Listen binds a UDP socket on addr ("host:port"). network is udp4 or udp6.
func Listen(network, addr string, matcher Matcher, keyfunc jwt.Keyfunc, log logrus.FieldLogger) (*Server, error) {
	s, err := net.ResolveUDPAddr(network, addr)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", addr, err)
	}
	conn, err := net.ListenUDP(network, s)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	return &Server{conn: conn, matcher: matcher, keyfunc: keyfunc, log: log}, nil
}

// EnableSessions lets a remote that presented a valid token query without
// one until the earlier of the token's exp and ttl from now.
func (s *Server) EnableSessions(ttl time.Duration) {
	s.sessions = token.NewSessions(ttl)
}

// Close releases the socket of a server that was never served.
func (s *Server) Close() error {
	return s.conn.Close()
}

func (s *Server) Addr() net.Addr {
	return s.conn.LocalAddr()
}

// Serve handles requests until ctx is done, then closes the socket.
func (s *Server) Serve(ctx context.Context) error {
	s.log.WithField("addr", s.conn.LocalAddr().String()).Info("listening for queries")

	go func() {
		<-ctx.Done()
		s.conn.Close()
	}()

	buffer := make([]byte, wire.MAX_DATAGRAM)
	for {
		n, addr, err := s.conn.ReadFromUDP(buffer)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.log.WithError(err).Warn("read query")
			continue
		}

		reply := s.handle(buffer[:n], addr)
		if err := s.sendReply(addr, reply); err != nil {
			s.log.WithError(err).WithField("remote", addr.String()).Warn("error sending reply")
		}
	}
}

func (s *Server) handle(data []byte, addr *net.UDPAddr) wire.Reply {
	reply := wire.Reply{RequestID: uuid.NewString()}
	log := s.log.WithFields(logrus.Fields{
		"request_id": reply.RequestID,
		"remote":     addr.String(),
	})

	req, err := wire.UnmarshalRequest(data)
	if err != nil {
		log.WithError(err).Info("rejecting malformed query")
		reply.Error = err.Error()
		return reply
	}

	var tok *jwt.Token
	if req.Token != "" || s.sessions == nil || !s.sessions.Active(addr.IP.String()) {
		tok, err = token.ProcessToken(req.Token, s.keyfunc)
		if err != nil {
			log.WithError(err).Info("rejecting unauthenticated query")
			reply.Error = err.Error()
			return reply
		}
		if tok != nil && s.sessions != nil {
			exp, err := s.sessions.Grant(addr.IP.String(), tok)
			if err != nil {
				log.WithError(err).Debug("no session granted")
			} else {
				log.WithField("expiration", exp).Debug("session granted")
			}
		}
	}

	reply.Accept = s.matcher.Accept(req.Direction, req.Protocol, req.Port, req.Address)
	log.WithFields(logrus.Fields{
		"subject":   token.Subject(tok),
		"direction": req.Direction,
		"protocol":  req.Protocol,
		"port":      req.Port,
		"address":   req.Address,
		"accept":    reply.Accept,
	}).Debug("query answered")
	return reply
}

func (s *Server) sendReply(addr *net.UDPAddr, reply wire.Reply) error {
	data, err := reply.Marshal()
	if err != nil {
		return err
	}
	_, err = s.conn.WriteToUDP(data, addr)
	return err
}
