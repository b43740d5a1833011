package smtp_client

import (
	"errors"
	"log/slog"
	"net/textproto"

	"github.com/knadh/smtppool"
)

// SendMail transmits one message, with zero or more file-path attachments,
// through the next pooled SMTP connection. Authentication and transport
// problems are returned as errors so the caller can record the attempt as
// failed and continue.
func (sc *SmtpClients) SendMail(
	to []string,
	subject string,
	htmlContent string,
	attachments []string,
) error {
	sc.counter += 1
	if len(sc.connectionPool) < 1 {
		sc.connectionPool = initConnectionPool(sc.servers)
		if len(sc.connectionPool) < 1 {
			return errors.New("no smtp server connection in the pool")
		}
	}

	index := int(sc.counter % uint64(len(sc.connectionPool)))
	conn := sc.connectionPool[index]

	e := smtppool.Email{
		To:      to,
		From:    sc.servers.From,
		Sender:  sc.servers.Sender,
		ReplyTo: sc.servers.ReplyTo,
		Subject: subject,
		HTML:    []byte(htmlContent),
		Headers: textproto.MIMEHeader{},
	}
	for _, path := range attachments {
		if path == "" {
			continue
		}
		if _, err := e.AttachFile(path); err != nil {
			return err
		}
	}

	err := conn.pool.Send(e)
	if err != nil {
		// close and try to reconnect
		slog.Error("error when trying to send email", slog.String("error", err.Error()))

		pool, errReconnect := connectToPool(conn.server)
		if errReconnect != nil {
			slog.Error("cannot reconnect pool", slog.String("error", errReconnect.Error()), slog.String("server", conn.server.Host))
		} else {
			slog.Info("reconnected to pool", slog.String("server", conn.server.Host))
			sc.connectionPool[index].pool = pool
		}
	}
	return err
}
