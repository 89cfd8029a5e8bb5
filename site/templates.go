package site

import "html/template"

// baseCSS is inlined into every generated page so the output directory stays
// self-contained and pages open straight from the filesystem.
const baseCSS = `
:root { --bg:#0b0c10; --fg:#f0f3f6; --muted:#a3b3c2; --accent:#9ae6b4; --chip:#20232a; --card:#111318; }
* { box-sizing: border-box; }
html, body { margin:0; padding:0; background:var(--bg); color:var(--fg); font: 16px/1.55 system-ui, -apple-system, Segoe UI, Roboto, Helvetica, Arial, Apple Color Emoji, Segoe UI Emoji; }
a { color: #8ab4ff; text-decoration: none; }
a:hover { text-decoration: underline; }
.container { max-width: 980px; margin: 0 auto; padding: 28px 16px 80px; }
.title-block { display:flex; flex-direction:column; }
.meta-date { color: var(--muted); font-weight:600; margin-top:2px; }
.header h1 { font-size: 24px; margin:0; }
.title { font-size: 28px; margin: 12px 0 20px; }
.role { font-weight:600; color: var(--accent); margin-bottom: 8px; }
.msg-body p { margin: .6em 0; }
.msg-body pre { background: #0a0c12; border: 1px solid #232a33; padding: 12px; overflow-x: auto; border-radius: 10px; }
.msg-body code { background: #0a0c12; padding: 0 .25em; border-radius: 6px; }
.attachments { margin-top: 8px; color: var(--muted); font-size: 0.95em; }
.attachments ul { margin: .4em 0 .2em 1.2em; }
.image-grid { display:grid; grid-template-columns: repeat(auto-fill,minmax(160px,1fr)); gap:10px; margin-top:8px; }
.image-grid img { width:100%; height:auto; border-radius: 10px; background:#0a0c12; border:1px solid #232a33; }
.msg-body img { max-width:100%; height:auto; border-radius: 10px; background:#0a0c12; border:1px solid #232a33; }
hr.sep { border:0; border-top:1px solid #242933; margin: 16px 0; }
.search { margin: 12px 0 20px; display:flex; gap:10px; }
.search input { flex:1; padding:10px 12px; border-radius: 10px; border:1px solid #2a2f3a; background:#0f1116; color:var(--fg); }
.index-list { display:grid; gap:12px; }
.card { background: var(--card); border:1px solid #252a33; border-radius: 14px; padding: 10px 12px; }
.card h3 { margin: 0 0 8px; font-size: 18px; }
.small { color: var(--muted); font-size: .9em; }
.aside { color: var(--muted); font-size: .95em; white-space: pre-wrap; }
.code-wrap { position: relative; }
.msg-body pre.collapsible { max-height: 18rem; overflow: auto; transition: max-height .2s ease; }
.message { border-left:4px solid transparent; padding-left:12px; }

.badge { display:inline-block; margin-left:8px; padding:1px 8px; border-radius:999px; font-size:.75em; border:1px solid #2a2f3a; background:#111318; color:#a3b3c2; }
/* color accents per recipient */
.message.message--r-bio { border-left-color:#10b981; background:rgba(16,185,129,.06); }
.message.message--r-web,
.message.message--r-web-run,
.message.message--r-web-search { border-left-color:#60a5fa; background:rgba(96,165,250,.06); }
.message.message--r-python { border-left-color:#f59e0b; background:rgba(245,158,11,.06); }
.message.message--r-browser { border-left-color:#a78bfa; }
.message.message--r-canmore-create_textdoc,
.message.message--r-canmore-update_textdoc { border-left-color:#22d3ee; }
.message[class*="message--r-t2uay3k"] { border-left-color:#ef4444; }

/* Shaded fade at bottom when collapsed */
.code-wrap.shaded::after {
  content: "";
  position: absolute;
  left: 0; right: 0;
  bottom: 2.6rem;           /* leave space for the button */
  height: 3.2rem;
  pointer-events: none;
  background: linear-gradient(to bottom, rgba(11,12,16,0), rgba(11,12,16,0.95));
  border-bottom-left-radius: 10px;
  border-bottom-right-radius: 10px;
}

/* Toggle button */
.toggle {
  margin-top: .5rem;
  appearance: none;
  border: 1px solid #2a2f3a;
  background: #111318;
  color: #a3b3c2;
  padding: 6px 10px;
  border-radius: 8px;
  font-size: .9em;
  cursor: pointer;
}
.toggle:hover { background:#151923; }

/* Also collapse very long plain-text messages */
.msg-body.collapsible { max-height: 22rem; overflow: hidden; position: relative; }
.msg-body.collapsible.shaded::after {
  content:""; position:absolute; left:0; right:0; bottom:2.6rem; height:3.2rem;
  pointer-events:none; background: linear-gradient(to bottom, rgba(11,12,16,0), rgba(11,12,16,0.95));
}
`

// collapseJS folds long code blocks and messages behind a Show all toggle.
// String concatenation instead of template literals keeps it embeddable in a
// raw Go string.
const collapseJS = `
(function () {
  const CODE_LINE_THRESHOLD = 20;
  const CODE_CHAR_THRESHOLD = 1200;
  const MSG_HEIGHT_THRESHOLD = 800;

  function makeCollapsible(target, linesLabel) {
    const wrap = document.createElement('div');
    wrap.className = 'code-wrap shaded';
    target.parentNode.insertBefore(wrap, target);
    wrap.appendChild(target);

    target.classList.add('collapsible');

    const showLabel = linesLabel ? 'Show all (' + linesLabel + ')' : 'Show all';
    const btn = document.createElement('button');
    btn.className = 'toggle';
    btn.setAttribute('aria-expanded', 'false');
    btn.textContent = showLabel;
    btn.addEventListener('click', () => {
      const open = target.classList.toggle('open');
      if (open) {
        target.style.maxHeight = 'none';
        btn.textContent = 'Hide';
        btn.setAttribute('aria-expanded', 'true');
        wrap.classList.remove('shaded');
      } else {
        target.style.maxHeight = '';
        btn.textContent = showLabel;
        btn.setAttribute('aria-expanded', 'false');
        wrap.classList.add('shaded');
        target.scrollIntoView({ block: 'nearest' });
      }
    });
    wrap.appendChild(btn);
  }

  // Collapse long code blocks.
  document.querySelectorAll('.msg-body pre').forEach(pre => {
    const text = pre.textContent || '';
    const lines = text.split('\n').length;
    if (lines > CODE_LINE_THRESHOLD || text.length > CODE_CHAR_THRESHOLD) {
      makeCollapsible(pre, lines + ' lines');
    }
  });

  // Collapse long non-code messages.
  document.querySelectorAll('.msg-body').forEach(body => {
    if (body.querySelector('pre')) return;
    if (body.scrollHeight > MSG_HEIGHT_THRESHOLD) {
      body.classList.add('collapsible', 'shaded');
      const btn = document.createElement('button');
      btn.className = 'toggle';
      btn.textContent = 'Show all';
      btn.setAttribute('aria-expanded', 'false');
      btn.addEventListener('click', () => {
        const open = body.classList.toggle('open');
        if (open) {
          body.style.maxHeight = 'none';
          btn.textContent = 'Hide';
          btn.setAttribute('aria-expanded', 'true');
          body.classList.remove('shaded');
        } else {
          body.style.maxHeight = '';
          btn.textContent = 'Show all';
          btn.setAttribute('aria-expanded', 'false');
          body.classList.add('shaded');
          body.scrollIntoView({ block: 'nearest' });
        }
      });
      body.parentElement.appendChild(btn);
    }
  });
})();
`

const pageTemplate = `<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Title}}</title>
<style>{{.CSS}}</style>
</head>
<body>
<div class="container">
  <div class="header">
    <a href="index.html">&larr; Back</a>
    <h1 class="title">{{.Title}}</h1>
    <h6>{{.Date}}</h6>
  </div>
{{range .Messages}}  <div class="message{{if .Audience}} message--r-{{.Audience}}{{end}}">
    <div class="role">{{.RoleLabel}}{{if .Audience}}<span class="badge">{{.Audience}}</span>{{end}}</div>
    <div class="msg-body">{{.Body}}</div>
  </div>
{{end}}</div>
<script>{{.Script}}</script>
</body>
</html>
`

const indexTemplate = `<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.SiteTitle}}</title>
<style>{{.CSS}}</style>
</head>
<body>
<div class="container">
  <div class="header">
    <h1>{{.SiteTitle}}</h1>
  </div>
  <div class="search">
    <input id="q" type="search" placeholder="Search conversations by title&hellip;" oninput="filter()">
  </div>
  <div id="list" class="index-list">
{{range .Cards}}    <div class="card" data-title="{{.Filter}}">
      <h3><a href="{{.Href}}">{{.Title}}</a></h3>
      <div class="small">{{.Created}}</div>
    </div>
{{end}}  </div>
</div>
<script>
function filter() {
  const q = document.getElementById('q').value.toLowerCase();
  document.querySelectorAll('.card').forEach(card => {
    const t = card.getAttribute('data-title') || '';
    card.style.display = t.includes(q) ? '' : 'none';
  });
}
</script>
</body>
</html>
`

var (
	pageTmpl  = template.Must(template.New("page").Parse(pageTemplate))
	indexTmpl = template.Must(template.New("index").Parse(indexTemplate))
)

type pageData struct {
	Title    string
	Date     string
	CSS      template.CSS
	Script   template.JS
	Messages []messageData
}

type messageData struct {
	RoleLabel string
	Audience  string
	Body      template.HTML
}

type indexData struct {
	SiteTitle string
	CSS       template.CSS
	Cards     []cardData
}

// cardData is one index entry. Filter is the lowercased title the client-side
// search matches against.
type cardData struct {
	Title   string
	Href    string
	Created string
	Filter  string
}
