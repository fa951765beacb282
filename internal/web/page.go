package web

import "html/template"

var page = template.Must(template.New("page").Parse(`<!DOCTYPE html>
<html lang="fr">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
body { font-family: sans-serif; max-width: 48rem; margin: 2rem auto; }
.turn { margin-bottom: 1rem; }
.question { font-weight: bold; }
.answer { background: #f4f4f4; padding: .5rem 1rem; border-radius: .5rem; }
form.ask { display: flex; gap: .5rem; }
form.ask input { flex: 1; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<div id="chat">
{{range .Turns}}<div class="turn">
<div class="question">Vous : {{.Question}}</div>
<div class="answer">{{.Answer}}</div>
</div>
{{else}}<p>Pose une question sur le menu.</p>
{{end}}</div>
<form class="ask" method="post" action="/chat">
<input type="text" name="message" placeholder="Ta question..." autofocus>
<button type="submit">Envoyer</button>
</form>
<form method="post" action="/reset"><button type="submit">Effacer</button></form>
</body>
</html>
`))

type pageData struct {
	Title string
	Turns []turnView
}

type turnView struct {
	Question string
	Answer   template.HTML
}
