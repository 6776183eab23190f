package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kozaktomas/facevote/internal/web/handlers"
	"github.com/kozaktomas/facevote/internal/web/middleware"
)

func (s *Server) setupRoutes() {
	// Create handlers
	sessionsHandler := handlers.NewSessionsHandler(s.services.Sessions, s.config.Messages)
	captureHandler := handlers.NewCaptureHandler(s.services.Sessions, s.services.Verifier, s.services.Voters, s.config.Messages)
	votesHandler := handlers.NewVotesHandler(s.services.Sessions, s.services.Ledger, s.config.Messages)
	electionsHandler := handlers.NewElectionsHandler(s.services.Elections)
	votersHandler := handlers.NewVotersHandler(s.services.Voters, s.services.Verifier)
	adminsHandler := handlers.NewAdminsHandler(s.services.Admins, s.services.Verifier)
	reportsHandler := handlers.NewReportsHandler(s.services.Reports)

	// Health check (no auth required)
	s.router.Get("/api/v1/health", handlers.HealthCheck)

	// API routes
	s.router.Route("/api/v1", func(r chi.Router) {
		// Public routes: everything the capture page reaches from the
		// voter's browser. The session ID is the capability.
		r.Get("/sessions/{id}", sessionsHandler.Poll)
		r.Post("/sessions/{id}/capture", captureHandler.Submit)
		r.Get("/sessions/{id}/events", s.sessionEvents)
		r.Get("/elections/active", electionsHandler.ListActive)
		r.Get("/elections/{id}/candidates", electionsHandler.Candidates)
		r.Post("/reports", reportsHandler.Create)

		// Bot-facing routes require the shared API key
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAPIKey(s.config.Web.APIKey))

			// Sessions
			r.Post("/sessions", sessionsHandler.Create)

			// Votes
			r.Post("/votes", votesHandler.Cast)

			// Elections
			r.Get("/elections", electionsHandler.List)
			r.Post("/elections", electionsHandler.Create)
			r.Get("/elections/{id}", electionsHandler.Get)
			r.Post("/elections/{id}/candidates", electionsHandler.AddCandidate)
			r.Get("/elections/{id}/results", electionsHandler.Results)

			// Voter roll
			r.Get("/voters", votersHandler.List)
			r.Post("/voters", votersHandler.Add)
			r.Get("/voters/{matric}", votersHandler.Get)
			r.Post("/voters/{matric}/face", votersHandler.Enroll)

			// Admins
			r.Get("/admins", adminsHandler.List)
			r.Post("/admins", adminsHandler.Add)
			r.Delete("/admins/{chatID}", adminsHandler.Remove)
			r.Post("/admins/{chatID}/face", adminsHandler.Enroll)

			// Reports
			r.Get("/reports", reportsHandler.List)
		})
	})

	// Capture page opened from the verification link
	s.router.Get("/verify/{id}", s.serveCapturePage)
}

// sessionEvents upgrades to WebSocket and pushes the session's terminal
// state the moment it resolves.
func (s *Server) sessionEvents(w http.ResponseWriter, r *http.Request) {
	s.hub.Serve(w, r, chi.URLParam(r, "id"))
}

// serveCapturePage serves the self-contained camera page. The session ID is
// read from the URL by the embedded script; no templating is needed.
func (s *Server) serveCapturePage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(capturePageHTML))
}

const capturePageHTML = `<!DOCTYPE html>
<html>
<head>
    <title>Face Verification</title>
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <style>
        body { font-family: system-ui, sans-serif; display: flex; justify-content: center; align-items: center; min-height: 100vh; margin: 0; background: #1a1a2e; color: #eee; }
        .container { text-align: center; max-width: 480px; padding: 16px; }
        h1 { color: #00d9ff; font-size: 1.4rem; }
        video { width: 100%; border-radius: 8px; background: #000; }
        button { margin-top: 12px; padding: 10px 24px; font-size: 1rem; border: 0; border-radius: 6px; background: #00d9ff; color: #1a1a2e; cursor: pointer; }
        button:disabled { background: #555; cursor: default; }
        #status { margin-top: 12px; min-height: 1.5em; color: #aaa; }
        .ok { color: #4caf50; }
        .bad { color: #ff5252; }
    </style>
</head>
<body>
    <div class="container">
        <h1>Face Verification</h1>
        <video id="cam" autoplay playsinline muted></video>
        <div><button id="snap">Verify</button></div>
        <p id="status">Allow camera access to continue.</p>
    </div>
    <script>
        const sessionId = location.pathname.split('/').pop();
        const statusEl = document.getElementById('status');
        const snapBtn = document.getElementById('snap');
        const video = document.getElementById('cam');

        function done(verified, message) {
            snapBtn.disabled = true;
            statusEl.textContent = message;
            statusEl.className = verified ? 'ok' : 'bad';
            if (video.srcObject) {
                video.srcObject.getTracks().forEach(t => t.stop());
            }
        }

        const proto = location.protocol === 'https:' ? 'wss' : 'ws';
        const ws = new WebSocket(proto + '://' + location.host + '/api/v1/sessions/' + sessionId + '/events');
        ws.onmessage = (e) => {
            const ev = JSON.parse(e.data);
            done(ev.verified, ev.verified ? 'Verified. You can return to the chat.' : 'Verification failed.');
        };

        navigator.mediaDevices.getUserMedia({ video: { facingMode: 'user' } })
            .then(stream => { video.srcObject = stream; statusEl.textContent = 'Look at the camera and press Verify.'; })
            .catch(() => { statusEl.textContent = 'Camera access is required.'; statusEl.className = 'bad'; });

        snapBtn.addEventListener('click', () => {
            snapBtn.disabled = true;
            statusEl.textContent = 'Verifying...';
            statusEl.className = '';
            const canvas = document.createElement('canvas');
            canvas.width = video.videoWidth;
            canvas.height = video.videoHeight;
            canvas.getContext('2d').drawImage(video, 0, 0);
            canvas.toBlob(blob => {
                const form = new FormData();
                form.append('file', blob, 'capture.jpg');
                fetch('/api/v1/sessions/' + sessionId + '/capture', { method: 'POST', body: form })
                    .then(r => r.json().then(body => ({ ok: r.ok, body })))
                    .then(({ ok, body }) => {
                        if (!ok) {
                            statusEl.textContent = body.error || 'Verification failed.';
                            statusEl.className = 'bad';
                            snapBtn.disabled = false;
                            return;
                        }
                        done(body.verified, body.message);
                    })
                    .catch(() => {
                        statusEl.textContent = 'Network error, try again.';
                        statusEl.className = 'bad';
                        snapBtn.disabled = false;
                    });
            }, 'image/jpeg', 0.9);
        });
    </script>
</body>
</html>`
