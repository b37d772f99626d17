package http

import (
	"context"
	"errors"
	"httptun/internal/flog"
	"io"
	"net/http"
)

func (h *HTTP) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, int64(h.cfg.MaxBodySize)))
	if err != nil {
		flog.Debugf("tunnel request from %s: failed to read body: %v", r.RemoteAddr, err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	req, err := h.codec.Decode(body)
	if err != nil {
		flog.Debugf("tunnel request from %s: %v", r.RemoteAddr, err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	reply, err := h.tun.Dispatch(r.Context(), req)
	if err != nil {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			flog.Errorf("tunnel request from %s failed: %v", r.RemoteAddr, err)
			w.WriteHeader(http.StatusInternalServerError)
		}
		return
	}

	if reply.Hello {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		io.WriteString(w, h.tun.Greeting())
		return
	}

	out, err := h.codec.Encode(reply.Record)
	if err != nil {
		flog.Errorf("tunnel request from %s: failed to encode reply: %v", r.RemoteAddr, err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	if reply.KeepAlive && r.ProtoMajor == 1 {
		w.Header().Set("Connection", "Keep-Alive")
	}
	w.Write(out)
}
