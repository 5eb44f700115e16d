package web

const indexPage = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Tree Health Detection</title>
<style>
  body { font-family: sans-serif; margin: 2rem; }
  #result img { max-width: 100%; margin-top: 1rem; }
  #error { color: #c00; }
</style>
</head>
<body>
<h1>Tree Health Detection</h1>
<form id="upload">
  <input type="file" name="file" accept=".jpg,.jpeg,.png" required>
  <button type="submit">Detect</button>
</form>
<p id="error"></p>
<div id="result" hidden>
  <img id="annotated" alt="Annotated image">
  <h2>Class Counts</h2>
  <ul id="counts"></ul>
  <p><strong>Total Trees Detected: <span id="total">0</span></strong></p>
</div>
<script>
document.getElementById("upload").addEventListener("submit", async (ev) => {
  ev.preventDefault();
  const err = document.getElementById("error");
  err.textContent = "";
  const resp = await fetch("/api/annotate", { method: "POST", body: new FormData(ev.target) });
  const body = await resp.json();
  if (!resp.ok) {
    err.textContent = body.error;
    return;
  }
  document.getElementById("annotated").src = "data:image/png;base64," + body.image;
  const list = document.getElementById("counts");
  list.replaceChildren(...body.counts.map((c) => {
    const li = document.createElement("li");
    li.textContent = c.label + ": " + c.count;
    return li;
  }));
  document.getElementById("total").textContent = body.total;
  document.getElementById("result").hidden = false;
});
</script>
</body>
</html>
`
