package callback

// pageHTML relays location.href to the server and applies the answer. The
// fragment is read by script only and is removed with history.replaceState
// as soon as the server says so.
const pageHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width,initial-scale=1">
<meta name="referrer" content="no-referrer">
<title>Household</title>
<style>
*{margin:0;padding:0;box-sizing:border-box}
body{
  background:#0a0a10;color:#e4e4ec;
  font-family:'JetBrains Mono','SF Mono','Consolas',monospace;
  height:100vh;display:flex;align-items:center;justify-content:center;
  overflow:hidden;
}
.card{text-align:center}
.logo{
  font-size:28px;font-weight:700;letter-spacing:10px;
  text-transform:uppercase;margin-bottom:24px;color:#34d474;
}
.msg{font-size:14px;font-weight:600;margin-bottom:8px;color:#8890a0}
.msg.ok{color:#34d474}
.msg.err{color:#b45555}
.sub{font-size:12px;color:#505868}
</style>
</head>
<body>
<div class="card">
  <div class="logo">household</div>
  <div class="msg" id="msg">signing you in...</div>
  <div class="sub" id="sub"></div>
</div>
<script>
(function(){
  var msg=document.getElementById('msg');
  var sub=document.getElementById('sub');
  function show(text,cls,hint){
    msg.textContent=text;
    msg.className='msg '+(cls||'');
    sub.textContent=hint||'';
  }
  fetch('/callback/relay',{
    method:'POST',
    headers:{'Content-Type':'application/json'},
    body:JSON.stringify({location:window.location.href})
  }).then(function(r){return r.json();}).then(function(res){
    if(res.navigate){window.location.assign(res.navigate);return;}
    if(res.replace){window.history.replaceState(null,'',res.replace);}
    if(res.error){show(res.error,'err','return to your terminal');return;}
    show('sign-in received','ok','finish in your terminal');
  }).catch(function(){
    show('could not reach household','err','is the terminal still waiting?');
  });
})();
</script>
</body>
</html>`
