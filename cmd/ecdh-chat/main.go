// Command ecdh-chat is a two-party encrypted chat: it negotiates a key
// over a freshly generated elliptic-curve group, then relays stdin
// lines through the encrypted channel.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/smallyu/go-ecdh/internal/chat"
	"github.com/smallyu/go-ecdh/internal/protocol/ecdh"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	stdin := bufio.NewReader(os.Stdin)

	mode := prompt(stdin, "connect or listen? ")
	for mode != "connect" && mode != "listen" {
		mode = prompt(stdin, "connect or listen? ")
	}

	host := prompt(stdin, "ip address (empty=>localhost)? ")
	if host == "" {
		host = "localhost"
	}
	addr := fmt.Sprintf("%s:%d", host, chat.DefaultPort)

	var channel *chat.Channel
	var session *ecdh.Session
	if mode == "connect" {
		channel, err = chat.Dial(addr)
		session = ecdh.NewInitiator(ecdh.Config{Logger: logger})
	} else {
		logger.Info("waiting for a peer", zap.String("addr", addr))
		channel, err = chat.ListenAndAccept(addr)
		session = ecdh.NewResponder(ecdh.Config{Logger: logger})
	}
	if err != nil {
		logger.Error("connection failed", zap.Error(err))
		os.Exit(1)
	}

	var mu sync.Mutex
	established := make(chan struct{})

	channel.OnMessage = func(msg []byte) bool {
		mu.Lock()
		defer mu.Unlock()

		if !session.Established() {
			replies, err := session.HandleMessage(msg)
			if err != nil {
				logger.Error("key agreement failed", zap.Error(err))
				return false
			}
			for _, r := range replies {
				if err := channel.Send(r); err != nil {
					logger.Error("send failed", zap.Error(err))
					return false
				}
			}
			if session.Established() {
				close(established)
			}
			return true
		}

		plaintext, err := session.DecryptMessage(msg)
		if err != nil {
			logger.Error("undecryptable message", zap.Error(err))
			return false
		}
		fmt.Printf("< %s\n", plaintext)
		return true
	}
	channel.Start()

	if mode == "connect" {
		mu.Lock()
		setup, err := session.Start()
		mu.Unlock()
		if err != nil {
			logger.Error("key agreement setup failed", zap.Error(err))
			os.Exit(1)
		}
		if err := channel.Send(setup); err != nil {
			logger.Error("send failed", zap.Error(err))
			os.Exit(1)
		}
	}

	select {
	case <-established:
	case <-channel.Done():
		logger.Error("connection closed during key agreement", zap.Error(channel.Err()))
		os.Exit(1)
	}
	logger.Info("session established, type messages; empty line quits")

	for {
		line, err := stdin.ReadString('\n')
		line = strings.TrimRight(line, "\r\n")
		if err != nil || line == "" {
			break
		}

		mu.Lock()
		ciphertext, cerr := session.EncryptMessage([]byte(line))
		mu.Unlock()
		if cerr != nil {
			logger.Error("encryption failed", zap.Error(cerr))
			os.Exit(1)
		}
		if err := channel.Send(ciphertext); err != nil {
			logger.Error("send failed", zap.Error(err))
			os.Exit(1)
		}
	}

	channel.Close()
	if channel.Err() != nil {
		os.Exit(1)
	}
}

func prompt(r *bufio.Reader, q string) string {
	fmt.Print(q)
	line, _ := r.ReadString('\n')
	return strings.TrimSpace(line)
}
