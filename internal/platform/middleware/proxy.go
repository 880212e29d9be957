// Copyright (c) 2026 LetsWorkApps. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package middleware

import (
	"net"
	"net/http"
	"net/netip"
	"slices"
	"strings"

	"github.com/letsworkapps/authportal/internal/platform/constants"
)

// # Reverse Proxies

/*
TrustedProxies rewrites RemoteAddr to the client address reported by a
trusted reverse proxy.

Description: Only connections whose peer address lies in trusted are
considered. X-Forwarded-For is walked right to left, skipping trusted hops;
the first untrusted address is the client. X-Real-IP is used when no
X-Forwarded-For is present. With no trusted ranges the middleware is a no-op,
so forwarding headers from clients are never believed.
*/
func TrustedProxies(trusted []netip.Prefix) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if len(trusted) == 0 {
			return next
		}
		return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
			peer, ok := parseAddr(RealIP(request))
			if !ok || !isTrusted(trusted, peer) {
				next.ServeHTTP(writer, request)
				return
			}

			if client, found := forwardedClient(request, trusted); found {
				request = request.WithContext(request.Context())
				request.RemoteAddr = net.JoinHostPort(client.String(), "0")
			}
			next.ServeHTTP(writer, request)
		})
	}
}

func forwardedClient(request *http.Request, trusted []netip.Prefix) (netip.Addr, bool) {
	if forwarded := request.Header.Values(constants.HeaderXForwardedFor); len(forwarded) > 0 {
		hops := strings.Split(strings.Join(forwarded, ","), ",")
		for _, hop := range slices.Backward(hops) {
			addr, ok := parseAddr(strings.TrimSpace(hop))
			if !ok {
				return netip.Addr{}, false
			}
			if !isTrusted(trusted, addr) {
				return addr, true
			}
		}
		return netip.Addr{}, false
	}

	return parseAddr(strings.TrimSpace(request.Header.Get(constants.HeaderXRealIP)))
}

func parseAddr(value string) (netip.Addr, bool) {
	addr, err := netip.ParseAddr(value)
	if err != nil {
		return netip.Addr{}, false
	}
	return addr.Unmap(), true
}

func isTrusted(trusted []netip.Prefix, addr netip.Addr) bool {
	for _, prefix := range trusted {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}
