package core

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bluebeam/bluebeam/crypto"
	"github.com/bluebeam/bluebeam/internal/errs"
	"github.com/bluebeam/bluebeam/internal/logger"
	"github.com/bluebeam/bluebeam/internal/metrics"
	"github.com/bluebeam/bluebeam/persistence"
)

// sendJSONFrame seals record as JSON under sess's next send counter
// and hands the resulting frame to the session's transport.
func (c *Core) sendJSONFrame(ctx context.Context, sess *sessionState, tag byte, record interface{}) error {
	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal frame body: %w", err)
	}
	counter := sess.nextSendCounter()
	frame, err := sealFrame(sess.sharedKey, sess.id, tag, counter, body)
	if err != nil {
		return err
	}
	return sess.tr.Send(ctx, frame)
}

func sumChecksum(data []byte) string {
	return crypto.Checksum(data)
}

func (c *Core) handleIncomingMessage(sess *sessionState, plaintext []byte) {
	text := string(plaintext)
	now := time.Now()
	c.emit(MessageReceived{SessionID: sess.id, Message: text, Timestamp: now.Unix()})

	msgID := fmt.Sprintf("%s-recv-%d", sess.id, now.UnixNano())
	if err := c.store.AddMessage(persistence.Message{
		ID:             msgID,
		ConversationID: sess.id,
		SenderID:       sess.peerID,
		ReceiverID:     "self",
		Payload:        plaintext,
		Timestamp:      now,
		Status:         persistence.MessageDelivered,
	}); err != nil {
		c.log.Error("persist received message failed", logger.String("session_id", sess.id), logger.Error(err))
	}
}

func (c *Core) handleIncomingFileHeader(plaintext []byte) {
	var header fileHeaderRecord
	if err := json.Unmarshal(plaintext, &header); err != nil {
		c.emit(ErrorUpdate{Code: int(errs.CodeTransferFailed), Message: err.Error()})
		return
	}
	c.incoming[header.TransferID] = &incomingTransfer{
		id:        header.TransferID,
		filename:  header.Filename,
		totalSize: header.TotalSize,
		checksum:  header.Checksum,
		received:  make([]byte, 0, header.TotalSize),
	}
	if err := c.store.AddFile(persistence.FileTransfer{
		ID: header.TransferID, Filename: header.Filename,
		TotalSize: header.TotalSize, Checksum: header.Checksum,
		Status: persistence.FileInProgress,
	}); err != nil {
		c.log.Error("persist incoming file header failed", logger.String("transfer_id", header.TransferID), logger.Error(err))
	}
	metrics.TransfersStarted.WithLabelValues("receive").Inc()
}

func (c *Core) handleIncomingFileChunk(sess *sessionState, plaintext []byte) {
	var chunk fileChunkRecord
	if err := json.Unmarshal(plaintext, &chunk); err != nil {
		c.emit(ErrorUpdate{Code: int(errs.CodeTransferFailed), Message: err.Error()})
		return
	}
	in, ok := c.incoming[chunk.TransferID]
	if !ok {
		return
	}
	in.sessionID = sess.id
	if int64(len(in.received)) != chunk.Offset {
		grown := make([]byte, chunk.Offset)
		copy(grown, in.received)
		in.received = grown
	}
	in.received = append(in.received, chunk.Chunk...)
	in.highestOffset = int64(len(in.received))
	in.chunksRecv++

	_ = c.store.UpdateFileProgress(chunk.TransferID, in.highestOffset, persistence.FileInProgress)
	c.emit(FileTransferProgress{TransferID: chunk.TransferID, Progress: float64(in.highestOffset) / float64(in.totalSize)})

	complete := in.highestOffset >= in.totalSize
	if in.chunksRecv%ackEveryNChunks == 0 && !complete {
		_ = c.sendJSONFrame(context.Background(), sess, tagFileAck, fileAckRecord{TransferID: chunk.TransferID, Offset: uint64(in.highestOffset)})
	}

	if complete {
		c.finishIncomingTransfer(sess, in)
	}
}

func (c *Core) finishIncomingTransfer(sess *sessionState, in *incomingTransfer) {
	got := sumChecksum(in.received)
	if got != in.checksum {
		c.emit(ErrorUpdate{Code: int(errs.CodeChecksumMismatch), Message: fmt.Sprintf("checksum mismatch for %s", in.id)})
		_ = c.store.UpdateFileProgress(in.id, in.highestOffset, persistence.FileFailed)
		delete(c.incoming, in.id)
		return
	}

	path := filepath.Join(c.filesDir, in.filename)
	if err := os.MkdirAll(c.filesDir, 0o700); err != nil {
		c.emit(ErrorUpdate{Code: int(errs.CodeIO), Message: err.Error()})
		return
	}
	if err := os.WriteFile(path, in.received, 0o600); err != nil {
		c.emit(ErrorUpdate{Code: int(errs.CodeIO), Message: err.Error()})
		return
	}

	_ = c.store.UpdateFileProgress(in.id, in.highestOffset, persistence.FileComplete)
	metrics.TransfersCompleted.WithLabelValues("success").Inc()

	// The periodic every-16th-chunk ACK only fires on that boundary; a
	// transfer whose chunk count never reaches it (e.g. a 200 KiB file
	// in 4 chunks) would otherwise never tell the sender it finished, so
	// the final ACK carrying the full size is always sent here instead.
	_ = c.sendJSONFrame(context.Background(), sess, tagFileAck, fileAckRecord{TransferID: in.id, Offset: uint64(in.highestOffset)})

	c.emit(FileReceived{SessionID: sess.id, Path: path})
	delete(c.incoming, in.id)
}

// handleIncomingFileAck processes a tagFileAck frame from the peer. The
// same tag carries two distinct roles: a sender reads progress/
// completion acks for its own outgoing transfer, and a receiver reads
// an abort notice the sender sent after CancelTransfer for a transfer
// it has no outgoing record of (it was receiving, not sending), so
// both c.outgoing and c.incoming are checked on an abort.
func (c *Core) handleIncomingFileAck(plaintext []byte) {
	var ack fileAckRecord
	if err := json.Unmarshal(plaintext, &ack); err != nil {
		return
	}

	if ack.Offset == abortOffset {
		if out, ok := c.outgoing[ack.TransferID]; ok {
			out.cancelled = true
			_ = c.store.UpdateFileProgress(ack.TransferID, out.sentSize, persistence.FileFailed)
			delete(c.outgoing, ack.TransferID)
		}
		if in, ok := c.incoming[ack.TransferID]; ok {
			_ = c.store.UpdateFileProgress(ack.TransferID, int64(len(in.received)), persistence.FileFailed)
			delete(c.incoming, ack.TransferID)
		}
		return
	}

	out, ok := c.outgoing[ack.TransferID]
	if !ok {
		return
	}

	_ = c.store.UpdateFileProgress(ack.TransferID, out.sentSize, persistence.FileInProgress)
	if out.sentSize >= out.totalSize {
		_ = c.store.UpdateFileProgress(ack.TransferID, out.sentSize, persistence.FileComplete)
		delete(c.outgoing, ack.TransferID)
	}
}
